package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Backland-Labs/runclient/internal/client"
	"github.com/Backland-Labs/runclient/internal/schema"
)

type runFlags struct {
	inputs     []string
	inputsFile string
	webhook    string
	sync       bool
}

func newRunCommand(a *app) *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run <deployment-id>",
		Short: "Start a run of a deployment",
		Long: `Start a run of a deployment.

Inputs are given as repeated --input key=value flags and/or a YAML file of
key: value pairs (--inputs-file). Flags win over the file. With --sync the
command polls until the run succeeds or the poll budget runs out.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs, err := collectInputs(flags.inputsFile, flags.inputs)
			if err != nil {
				return err
			}
			req := schema.RunRequest{
				DeploymentID: args[0],
				Inputs:       inputs,
				Webhook:      flags.webhook,
			}

			c, err := a.client()
			if err != nil {
				return err
			}

			if !flags.sync {
				handle, err := c.Run(cmd.Context(), req)
				if err != nil {
					return err
				}
				a.printer.Success("Run %s submitted", handle.RunID)
				return a.printer.JSON(handle)
			}

			out, err := c.RunSync(cmd.Context(), req, client.OnPoll(func(attempt int, out *schema.RunOutput, err error) {
				if err != nil {
					a.printer.Warning("[%d] status check failed: %v", attempt, err)
					return
				}
				a.printer.Status(attempt, out)
			}))
			if err != nil {
				return err
			}
			if out.Incomplete() {
				a.printer.Warning("Run %s did not succeed within %d attempts", out.ID, a.cfg.Poll.MaxAttempts)
			} else {
				a.printer.Success("Run %s succeeded", out.ID)
			}
			return a.printer.JSON(out)
		},
	}

	cmd.Flags().StringArrayVarP(&flags.inputs, "input", "i", nil, "Run input as key=value (repeatable)")
	cmd.Flags().StringVar(&flags.inputsFile, "inputs-file", "", "YAML file of run inputs")
	cmd.Flags().StringVar(&flags.webhook, "webhook", "", "URL the service calls when the run finishes")
	cmd.Flags().BoolVar(&flags.sync, "sync", false, "Wait for the run to finish")

	return cmd
}

// collectInputs merges inputs from a YAML file and key=value pairs
func collectInputs(path string, pairs []string) (map[string]string, error) {
	inputs := map[string]string{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read inputs file: %w", err)
		}
		var raw map[string]interface{}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse inputs file %s: %w", path, err)
		}
		for key, value := range raw {
			switch v := value.(type) {
			case string:
				inputs[key] = v
			case nil:
				inputs[key] = ""
			case map[string]interface{}, []interface{}:
				return nil, fmt.Errorf("input %q must be a scalar value", key)
			default:
				inputs[key] = fmt.Sprint(v)
			}
		}
	}

	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid input %q: expected key=value", pair)
		}
		inputs[key] = value
	}

	if len(inputs) == 0 {
		return nil, nil
	}
	return inputs, nil
}
