package cmd

import (
	"fmt"
	"reflect"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/locastarr/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
	Long:  `Commands for managing locastarr configuration.`,
}

var configDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Dump the default configuration",
	Long: `Dump the default configuration values in YAML format.

This shows all available configuration options with their default values.
You can redirect this output to a file to create a configuration template:

  locastarr config dump > config.yaml

Configuration can be set via:
  - Config file (./config.yaml, /etc/locastarr/config.yaml)
  - Environment variables (LOCASTARR_SERVER_PORT, LOCASTARR_SESSION_EMAIL, etc.)
  - Legacy credential variables (LCST_USER_EMAIL, LCST_USER_PSWRD, LCST_TOKEN)

Environment variables use the LOCASTARR_ prefix and underscores for nesting.
Example: server.port -> LOCASTARR_SERVER_PORT`,
	RunE: runConfigDump,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configDumpCmd)
}

// toMap converts a struct to a map, formatting durations for human
// readability.
func toMap(v any) map[string]any {
	result := make(map[string]any)
	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)

		key := fieldType.Tag.Get("mapstructure")
		if key == "" {
			key = fieldType.Tag.Get("yaml")
		}
		if key == "" {
			key = fieldType.Name
		}

		switch v := field.Interface().(type) {
		case time.Duration:
			result[key] = v.String()
		default:
			if field.Kind() == reflect.Struct {
				result[key] = toMap(field.Interface())
			} else {
				result[key] = field.Interface()
			}
		}
	}
	return result
}

func runConfigDump(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load("")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Blank out any credentials picked up from the environment so a dump
	// redirected to a file never captures secrets.
	cfg.Session.Email = ""
	cfg.Session.Password = ""
	cfg.Session.Token = ""

	yamlData, err := yaml.Marshal(toMap(cfg))
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	fmt.Println("# locastarr Configuration File")
	fmt.Println("# =============================")
	fmt.Println("#")
	fmt.Println("# All values shown below are defaults.")
	fmt.Println("#")
	fmt.Println("# Environment variable overrides:")
	fmt.Println("#   LOCASTARR_SERVER_HOST, LOCASTARR_SERVER_PORT")
	fmt.Println("#   LOCASTARR_SESSION_EMAIL, LOCASTARR_SESSION_PASSWORD")
	fmt.Println("#   LOCASTARR_GUIDE_SCHEDULE, LOCASTARR_GUIDE_OUTPUT_PATH")
	fmt.Println("#   LOCASTARR_LOGGING_LEVEL, LOCASTARR_LOGGING_FORMAT")
	fmt.Println("#   etc.")
	fmt.Println("#")
	fmt.Println("")
	fmt.Print(string(yamlData))

	return nil
}
