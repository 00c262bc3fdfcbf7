package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hugr-lab/productsearch-go/search"
)

var longSearch = `
Run one search against the configured backend and print the page as JSON.

The request is read as JSON from --request, or from stdin when the flag is
empty or "-". Example:

  {"categoryId": 2,
   "filters": {"RAM": {"operator": "gte", "value": 16}},
   "sort": {"field": "price", "order": "asc"},
   "pagination": {"page": 1, "limit": 10}}
`

var longCompile = `
Compile a search request and print the plan as JSON: the normalized request,
the predicate with its parameters, and the count and page statements.

Only the attribute catalog is read. No product query runs.
`

// pageOutput is the JSON shape of a printed page.
type pageOutput struct {
	*search.Page[search.Product]
	TotalPages int64 `json:"totalPages"`
	HasNext    bool  `json:"hasNext"`
}

func newSearchCmd(v *viper.Viper) *cobra.Command {
	var requestFile string
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Run one search and print the result page",
		Long:  longSearch,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			req, err := readRequest(cmd.InOrStdin(), requestFile)
			if err != nil {
				return err
			}
			logger := cfg.Logger(cmd.ErrOrStderr())
			be, err := openBackend(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer be.Close()

			svc, err := be.Service(cfg, logger, nil)
			if err != nil {
				return err
			}
			page, err := svc.Search(cmd.Context(), req)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), pageOutput{
				Page:       page,
				TotalPages: page.TotalPages(),
				HasNext:    page.HasNext(),
			})
		},
	}
	cmd.Flags().StringVarP(&requestFile, "request", "r", "", "JSON request file, stdin if empty or -")
	return cmd
}

func newCompileCmd(v *viper.Viper) *cobra.Command {
	var requestFile string
	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Print the statements a search would run",
		Long:  longCompile,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			req, err := readRequest(cmd.InOrStdin(), requestFile)
			if err != nil {
				return err
			}
			logger := cfg.Logger(cmd.ErrOrStderr())
			be, err := openBackend(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer be.Close()

			svc, err := be.Service(cfg, logger, nil)
			if err != nil {
				return err
			}
			plan, err := svc.Prepare(cmd.Context(), req)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), plan)
		},
	}
	cmd.Flags().StringVarP(&requestFile, "request", "r", "", "JSON request file, stdin if empty or -")
	return cmd
}

// readRequest decodes a JSON search request from path, or from stdin.
func readRequest(stdin io.Reader, path string) (search.Request, error) {
	r := stdin
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return search.Request{}, fmt.Errorf("open request: %w", err)
		}
		defer f.Close()
		r = f
	}

	var req search.Request
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return search.Request{}, fmt.Errorf("decode request: %w", err)
	}
	return req, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
