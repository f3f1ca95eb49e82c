// Package commands implements the subcommands of the p2p CLI.
package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/viper"
	"github.com/tribpub/p2p-go/pkg/p2p"
	"github.com/tribpub/p2p-go/pkg/p2pclient"
	"gopkg.in/yaml.v3"
)

// Output formats.
const (
	OutputFormatJSON = "json"
	OutputFormatYAML = "yaml"
)

// Common static errors used throughout the commands package.
var (
	ErrAPIEndpointRequired = errors.New("API endpoint is required (use --api, P2P_API_URL, or run 'p2p login')")
	ErrTokenRequired       = errors.New("access token is required (use --token, P2P_API_KEY, or run 'p2p login')")
	ErrFieldNotFound       = errors.New("field not found on content item")
	ErrSlugRequired        = errors.New("slug is required")
)

// createClient builds an API client from the viper configuration.
func createClient() (p2p.Client, error) {
	apiEndpoint := viper.GetString("api")
	if apiEndpoint == "" {
		apiEndpoint = viper.GetString("api_url")
	}

	token := viper.GetString("token")
	if token == "" {
		token = viper.GetString("api_key")
	}

	if apiEndpoint == "" {
		return nil, ErrAPIEndpointRequired
	}

	if token == "" {
		return nil, ErrTokenRequired
	}

	// Default in-memory cache so repeated fetches and the cache stats
	// output are meaningful within one invocation.
	cache, err := p2p.NewCacheFromConfig(nil)
	if err != nil {
		return nil, fmt.Errorf("building cache: %w", err)
	}

	return p2pclient.New(&p2p.Config{
		BaseURL:          apiEndpoint,
		AccessToken:      token,
		ImageServicesURL: viper.GetString("image_services_url"),
		Debug:            viper.GetBool("debug"),
		Cache:            cache,
	})
}

// renderRecord prints a record in the configured output format. The table
// format shows top-level scalar fields sorted by name.
func renderRecord(record p2p.Record) error {
	output := viper.GetString("output")
	switch output {
	case OutputFormatJSON:
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")

		err := encoder.Encode(record)
		if err != nil {
			return fmt.Errorf("encoding record to JSON: %w", err)
		}

		return nil
	case OutputFormatYAML:
		encoder := yaml.NewEncoder(os.Stdout)

		err := encoder.Encode(map[string]interface{}(record))
		if err != nil {
			return fmt.Errorf("encoding record to YAML: %w", err)
		}

		return nil
	default:
		return renderRecordTable(record)
	}
}

func renderRecordTable(record p2p.Record) error {
	keys := make([]string, 0, len(record))
	for key := range record {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Field", "Value")

	for _, key := range keys {
		switch record[key].(type) {
		case map[string]interface{}, []interface{}, p2p.Record:
			continue
		}

		_ = table.Append(key, fmt.Sprintf("%v", record[key]))
	}

	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}
