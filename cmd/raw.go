package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// rawResult is what the raw command prints for a successful call.
type rawResult struct {
	Status int               `json:"status"          yaml:"status"`
	URL    string            `json:"url"             yaml:"url"`
	Header map[string]string `json:"header,omitempty" yaml:"header,omitempty"`
	Body   any               `json:"body"            yaml:"body"`
}

var rawCmd = &cobra.Command{
	Use:   "raw METHOD ENDPOINT",
	Short: "Send an arbitrary request relative to the versioned API root",
	Example: `  tracker raw get myself
  tracker raw post issues/_search --data '{"filter":{"queue":"TEST"}}'`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		params, err := flags.GetStringToString("param")
		if err != nil {
			return err
		}
		headers, err := flags.GetStringToString("header")
		if err != nil {
			return err
		}
		data, _ := flags.GetString("data")

		var payload map[string]any
		if data != "" {
			if err := json.Unmarshal([]byte(data), &payload); err != nil {
				return fmt.Errorf("failed to parse --data as a JSON object: %w", err)
			}
		}

		resp, err := client.RawQuery(cmd.Context(), args[0], args[1], params, headers, payload)
		if err != nil {
			return err
		}

		out := rawResult{Status: resp.StatusCode, URL: resp.URL, Body: resp.Body}
		if withHeaders, _ := flags.GetBool("include"); withHeaders {
			out.Header = make(map[string]string, len(resp.Header))
			for k := range resp.Header {
				out.Header[k] = resp.Header.Get(k)
			}
		}
		return render(cmd.OutOrStdout(), cfg.Output, out)
	},
}

func init() {
	flags := rawCmd.Flags()
	flags.StringToString("param", nil, "Query parameters, e.g. perPage=10")
	flags.StringToString("header", nil, "Headers for this request only")
	flags.String("data", "", "JSON object sent as the request body")
	flags.BoolP("include", "i", false, "Include response headers in the output")
	rootCmd.AddCommand(rawCmd)
}
