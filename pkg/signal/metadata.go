package signal

// Metadata keys written by the extractors and read back by the result
// assembler.
const (
	MetaBands           = "bands"
	MetaTextRegions     = "text_regions"
	MetaTextDensity     = "text_density"
	MetaSuspiciousScore = "suspicious_score"
	MetaHorizontalLines = "horizontal_lines"
	MetaVerticalLines   = "vertical_lines"
	MetaIndicators      = "indicators"
)

// BandStats is the colour extractor's per-band breakdown.
type BandStats struct {
	Regions   int     `json:"regions"`
	TotalArea float64 `json:"total_area"`
}

// Bands returns the per-band stats of a colour reading.
func (r Reading) Bands() map[string]BandStats {
	if b, ok := r.Metadata[MetaBands].(map[string]BandStats); ok {
		return b
	}
	return map[string]BandStats{}
}

// Indicators returns the scenario breakdown of a scenario reading.
func (r Reading) Indicators() ScenarioIndicators {
	if s, ok := r.Metadata[MetaIndicators].(ScenarioIndicators); ok {
		return s
	}
	return ScenarioIndicators{}
}

// Float reads a numeric metadata value, accepting the int and float types
// the extractors write.
func (r Reading) Float(key string) float64 {
	switch v := r.Metadata[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	}
	return 0
}

// Int reads an integer metadata value.
func (r Reading) Int(key string) int {
	switch v := r.Metadata[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}
