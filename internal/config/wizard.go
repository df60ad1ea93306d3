package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"

	"github.com/ziadkadry99/molscope/internal/chainstyle"
)

// RunWizard runs an interactive configuration wizard and saves the result
// to path.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to molscope! Let's configure your viewer.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Chat provider.
	providerPrompt := promptui.Select{
		Label: "Select chat provider",
		Items: []string{string(ProviderOpenAI), string(ProviderOpenRouter), string(ProviderOllama)},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	cfg.Chat.Provider = ProviderType(providerStr)

	// 2. Model.
	modelPrompt := promptui.Prompt{
		Label:   "Chat model",
		Default: DefaultModel(cfg.Chat.Provider),
	}
	if cfg.Chat.Model, err = modelPrompt.Run(); err != nil {
		return nil, fmt.Errorf("model: %w", err)
	}

	// 3. Default style.
	kinds := make([]string, len(chainstyle.Kinds))
	for i, k := range chainstyle.Kinds {
		kinds[i] = string(k)
	}
	stylePrompt := promptui.Select{
		Label: "Default display style",
		Items: kinds,
	}
	if _, cfg.Viewer.Style, err = stylePrompt.Run(); err != nil {
		return nil, fmt.Errorf("style selection: %w", err)
	}

	// 4. Server port.
	portPrompt := promptui.Prompt{
		Label:    "Server port",
		Default:  strconv.Itoa(cfg.Server.Port),
		Validate: validatePort,
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("server port: %w", err)
	}
	cfg.Server.Port, _ = strconv.Atoi(portStr)

	// 5. Local example globs.
	examplesPrompt := promptui.Prompt{
		Label:   "Local structure files to offer as examples (comma-separated globs, blank for none)",
		Default: "",
	}
	examplesStr, err := examplesPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("example globs: %w", err)
	}
	cfg.Examples.Paths = splitAndTrim(examplesStr)

	if envVar := APIKeyEnvVar(cfg.Chat.Provider); envVar != "" && os.Getenv(envVar) == "" {
		fmt.Printf("\nNote: Set %s in your environment before using chat.\n", envVar)
	}

	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}

func validatePort(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 65535 {
		return fmt.Errorf("port must be a number between 1 and 65535")
	}
	return nil
}

// splitAndTrim splits a comma-separated string and trims whitespace.
func splitAndTrim(s string) []string {
	var result []string
	for _, part := range strings.Split(s, ",") {
		if token := strings.TrimSpace(part); token != "" {
			result = append(result, token)
		}
	}
	return result
}
