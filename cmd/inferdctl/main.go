package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/urfave/cli/v2"
)

// inferdctl is the operator CLI for an inferd coordinator: it talks to the
// HTTP admin surface (internal/api) rather than the Engine directly, since
// it's meant to run against a remote coordinator the way a service's admin
// tool normally would.
func main() {
	app := &cli.App{
		Name:  "inferdctl",
		Usage: "administer an inferd coordinator",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "endpoint", Value: "http://localhost:8080", Usage: "coordinator base URL"},
			&cli.StringFlag{Name: "token", EnvVars: []string{"API_AUTH_TOKEN"}, Usage: "bearer token for admin endpoints"},
		},
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "bootstrap the GlobalState singleton",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "params-file", Required: true, Usage: "JSON file matching models.InitRequest"},
				},
				Action: func(c *cli.Context) error {
					body, err := os.ReadFile(c.String("params-file"))
					if err != nil {
						return err
					}
					return post(c, "/api/v1/admin/init", body)
				},
			},
			{
				Name:  "add-model",
				Usage: "register a model in the registry",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "admin", Required: true},
					&cli.StringFlag{Name: "model", Required: true},
				},
				Action: func(c *cli.Context) error {
					body, _ := json.Marshal(map[string]string{"admin": c.String("admin"), "model": c.String("model")})
					return post(c, "/api/v1/admin/models", body)
				},
			},
			{
				Name:  "remove-model",
				Usage: "remove a model with an empty roster",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "admin", Required: true},
					&cli.StringFlag{Name: "model", Required: true},
				},
				Action: func(c *cli.Context) error {
					return del(c, fmt.Sprintf("/api/v1/admin/models/%s?admin=%s", c.String("model"), c.String("admin")))
				},
			},
			{
				Name:  "set-param",
				Usage: "update a single admin-gated GlobalState field",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "admin", Required: true},
					&cli.StringFlag{Name: "field", Required: true, Usage: "min_miner_stake|fine_percent|penalty_duration|min_fee_to_use|fee_split|dao_token_reward"},
					&cli.Uint64Flag{Name: "value", Required: true},
				},
				Action: func(c *cli.Context) error {
					path, ok := paramPaths[c.String("field")]
					if !ok {
						return fmt.Errorf("unknown field %q", c.String("field"))
					}
					body, _ := json.Marshal(map[string]interface{}{"admin": c.String("admin"), "value": c.Uint64("value")})
					return post(c, path, body)
				},
			},
			{
				Name:  "update-epoch",
				Usage: "advance the epoch if one is due",
				Flags: []cli.Flag{
					&cli.Uint64Flag{Name: "expected-epoch", Required: true},
				},
				Action: func(c *cli.Context) error {
					body, _ := json.Marshal(map[string]uint64{"expectedEpochId": c.Uint64("expected-epoch")})
					return post(c, "/api/v1/epoch/update", body)
				},
			},
			{
				Name:  "roster",
				Usage: "list a model's active committee-eligible miners",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "model", Required: true},
				},
				Action: func(c *cli.Context) error {
					return get(c, fmt.Sprintf("/api/v1/models/%s/roster", c.String("model")))
				},
			},
			{
				Name:  "claimable",
				Usage: "show a miner's claimable stake and reward",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "miner", Required: true},
				},
				Action: func(c *cli.Context) error {
					return get(c, fmt.Sprintf("/api/v1/miners/%s/claimable", c.String("miner")))
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "inferdctl:", err)
		os.Exit(1)
	}
}

var paramPaths = map[string]string{
	"min_miner_stake":   "/api/v1/admin/params/min_miner_stake",
	"fine_percent":      "/api/v1/admin/params/fine_percent",
	"penalty_duration":  "/api/v1/admin/params/penalty_duration",
	"min_fee_to_use":    "/api/v1/admin/params/min_fee_to_use",
	"fee_split":         "/api/v1/admin/params/fee_split",
	"dao_token_reward":  "/api/v1/admin/params/dao_token_reward",
}

func post(c *cli.Context, path string, body []byte) error {
	return do(c, http.MethodPost, path, body)
}

func del(c *cli.Context, path string) error {
	return do(c, http.MethodDelete, path, nil)
}

func get(c *cli.Context, path string) error {
	return do(c, http.MethodGet, path, nil)
}

func do(c *cli.Context, method, path string, body []byte) error {
	req, err := http.NewRequest(method, c.String("endpoint")+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token := c.String("token"); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	if resp.StatusCode >= 400 {
		return fmt.Errorf("request failed: %s", resp.Status)
	}
	return nil
}
