package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ItsNotGoodName/composer/internal/core"
	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/dustin/go-humanize"
	"github.com/k0kubun/pp"
	"github.com/spf13/cobra"
)

type sceneSummary struct {
	Frame   uint64            `json:"frame"`
	Time    time.Time         `json:"time"`
	Mode    string            `json:"mode"`
	Entries []json.RawMessage `json:"entries"`
}

// SceneCommand prints the last scene of a running server.
func SceneCommand() *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "scene",
		Short: "Print the current scene of a running server",
		Args:  cobra.NoArgs,
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, options *Options) {
			if err := printScene(cmd.Context(), options, raw); err != nil {
				cmd.PrintErrln(err)
			}
		}),
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "print the scene without the summary")

	return cmd
}

func printScene(ctx context.Context, options *Options, raw bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	host := options.Host
	if host == "" {
		host = "localhost"
	}
	url := "http://" + core.Address(host, options.Port) + "/api/scene"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s", url, resp.Status)
	}

	var scene map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&scene); err != nil {
		return err
	}
	pp.Println(scene)
	if raw {
		return nil
	}

	b, err := json.Marshal(scene)
	if err != nil {
		return err
	}
	var summary sceneSummary
	if err := json.Unmarshal(b, &summary); err != nil {
		return err
	}
	fmt.Printf("frame %s, %s, %d entries, mode %s\n",
		humanize.Comma(int64(summary.Frame)),
		humanize.Time(summary.Time),
		len(summary.Entries),
		summary.Mode,
	)
	return nil
}
