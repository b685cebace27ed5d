package gbif

import (
	"time"

	"github.com/basileandre056/api2gn/internal/parser"
)

func init() {
	parser.Register("gbif", func(config map[string]any) (parser.Parser, error) {
		cfg := Config{}
		if v, ok := config["base_url"].(string); ok {
			cfg.BaseURL = v
		}
		if v, ok := config["page_size"].(int); ok {
			cfg.PageSize = v
		}
		if v, ok := config["dataset_name"].(string); ok {
			cfg.DatasetName = v
		}
		if v, ok := config["filters"].(map[string]string); ok {
			cfg.Filters = v
		}
		if v, ok := config["last_import"].(time.Time); ok {
			cfg.LastImport = v
		}
		return New(cfg)
	})
}
