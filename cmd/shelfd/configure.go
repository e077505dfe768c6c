package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Interactively write a config file",
	Long: `Configure walks through the main settings and writes them to
config.yaml in the current directory (or the path given with --config).`,
	RunE: runConfigure,
}

func init() {
	rootCmd.AddCommand(configureCmd)
}

func runConfigure(cmd *cobra.Command, args []string) error {
	target, _ := cmd.Flags().GetString("config")
	if target == "" {
		target = "config.yaml"
	}

	if _, err := os.Stat(target); err == nil {
		confirm := promptui.Prompt{
			Label:     fmt.Sprintf("%s exists, overwrite", target),
			IsConfirm: true,
		}
		if _, err := confirm.Run(); err != nil {
			fmt.Println("Aborted.")
			return nil
		}
	}

	portPrompt := promptui.Prompt{
		Label:   "HTTP port",
		Default: "3000",
		Validate: func(input string) error {
			port, err := strconv.Atoi(input)
			if err != nil || port < 1 || port > 65535 {
				return errors.New("port must be a number between 1 and 65535")
			}
			return nil
		},
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return fmt.Errorf("prompt port: %w", err)
	}
	port, _ := strconv.Atoi(portStr)

	basePathPrompt := promptui.Prompt{
		Label:   "Collection base path",
		Default: "/books",
		Validate: func(input string) error {
			if len(input) == 0 || input[0] != '/' {
				return errors.New("base path must start with /")
			}
			return nil
		},
	}
	basePath, err := basePathPrompt.Run()
	if err != nil {
		return fmt.Errorf("prompt base path: %w", err)
	}

	storeSelect := promptui.Select{
		Label: "Record store backend",
		Items: []string{"json", "sqlite", "postgres"},
	}
	_, storeBackend, err := storeSelect.Run()
	if err != nil {
		return fmt.Errorf("select store backend: %w", err)
	}

	storeSettings := map[string]any{"backend": storeBackend}
	databaseSettings := map[string]any{}

	switch storeBackend {
	case "json":
		filePrompt := promptui.Prompt{Label: "Collection file", Default: "data/records.json"}
		file, err := filePrompt.Run()
		if err != nil {
			return fmt.Errorf("prompt store file: %w", err)
		}
		storeSettings["file"] = file
	default:
		dsnPrompt := promptui.Prompt{Label: "Database DSN", Default: "shelfd.db"}
		dsn, err := dsnPrompt.Run()
		if err != nil {
			return fmt.Errorf("prompt dsn: %w", err)
		}
		databaseSettings["dsn"] = dsn
	}

	assetsSelect := promptui.Select{
		Label: "Asset backend",
		Items: []string{"disk", "memory"},
	}
	_, assetsBackend, err := assetsSelect.Run()
	if err != nil {
		return fmt.Errorf("select asset backend: %w", err)
	}

	assetsSettings := map[string]any{"backend": assetsBackend}
	if assetsBackend == "disk" {
		dirPrompt := promptui.Prompt{Label: "Upload directory", Default: "./uploads"}
		dir, err := dirPrompt.Run()
		if err != nil {
			return fmt.Errorf("prompt assets dir: %w", err)
		}
		assetsSettings["dir"] = dir
	}

	settings := map[string]any{
		"server": map[string]any{
			"port":      port,
			"base_path": basePath,
		},
		"store":  storeSettings,
		"assets": assetsSettings,
	}
	if len(databaseSettings) > 0 {
		settings["database"] = databaseSettings
	}

	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	if err := os.WriteFile(target, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	fmt.Printf("Wrote %s\n", target)
	return nil
}
