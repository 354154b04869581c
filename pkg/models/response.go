package models

// SchemaField names one column of a tabular API response.
type SchemaField struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// TableResponse is the envelope returned by the count and filtered endpoints.
type TableResponse struct {
	RowCount       int              `json:"row_count"`
	ResponseSchema []SchemaField    `json:"response_schema"`
	DayCount       *int             `json:"day_count,omitempty"`
	Response       []map[string]any `json:"response"`
}

// AttributesResponse lists the queryable attributes.
type AttributesResponse struct {
	Attributes []AttributeInfo `json:"attributes"`
}

// AttributeInfo describes one registered attribute.
type AttributeInfo struct {
	Name      string `json:"name"`
	Column    string `json:"column"`
	Kind      string `json:"kind"`
	ValueType string `json:"value_type"`
}

// UniqueValuesResponse lists the distinct non-null values of an attribute.
type UniqueValuesResponse struct {
	Attribute string `json:"attribute"`
	Values    []any  `json:"values"`
}

// NewAttributeInfo builds the public description of a.
func NewAttributeInfo(a Attribute) AttributeInfo {
	return AttributeInfo{
		Name:      a.Name(),
		Column:    a.Column(),
		Kind:      a.Kind().String(),
		ValueType: a.ValueType().String(),
	}
}
