package plantnet

import (
	"github.com/basileandre056/api2gn/internal/parser"
)

func init() {
	parser.Register("plantnet", func(config map[string]any) (parser.Parser, error) {
		cfg := Config{}
		if v, ok := config["base_url"].(string); ok {
			cfg.BaseURL = v
		}
		if v, ok := config["api_key"].(string); ok {
			cfg.APIKey = v
		}
		if v, ok := config["page_size"].(int); ok {
			cfg.PageSize = v
		}
		if v, ok := config["species"].([]string); ok {
			cfg.SpeciesFilter = v
		}
		if v, ok := config["min_event_date"].(string); ok {
			cfg.MinEventDate = v
		}
		if v, ok := config["max_event_date"].(string); ok {
			cfg.MaxEventDate = v
		}
		if v, ok := config["geometry_json"].(string); ok {
			cfg.GeometryJSON = v
		}
		if v, ok := config["mapping_json"].(string); ok {
			cfg.MappingJSON = v
		}
		if v, ok := config["dataset_name"].(string); ok {
			cfg.DatasetName = v
		}
		return New(cfg)
	})
}
