package handler

import (
	"onsd/internal/registry/models"
	"onsd/pkg/domain"
)

// CodeResponse is the HTTP response for GET /v1/codes/{key}.
type CodeResponse struct {
	Key      string `json:"key"`
	Children int    `json:"children"`
}

// CountResponse reports a table size.
type CountResponse struct {
	Count int `json:"count"`
}

// ChildResponse is the HTTP response for GET /v1/codes/{key}/records/{row}.
type ChildResponse struct {
	Key string `json:"key"`
	Row int    `json:"row"`
}

// RecordResponse is the HTTP response for GET /v1/records/{key}.
type RecordResponse struct {
	Key         string `json:"key"`
	GS1Code     string `json:"gs1_code"`
	ServiceType string `json:"service_type"`
	Flags       uint8  `json:"flags"`
	Terminal    bool   `json:"terminal"`
	Pattern     string `json:"pattern"`
}

// FromRecord converts a domain record to its HTTP response.
func FromRecord(rec models.ONSRecord) RecordResponse {
	return RecordResponse{
		Key:         rec.Key.String(),
		GS1Code:     rec.GS1Code.String(),
		ServiceType: rec.ServiceType.String(),
		Flags:       uint8(rec.Flags),
		Terminal:    rec.Terminal(),
		Pattern:     rec.Pattern,
	}
}

// ServiceTypeResponse is the HTTP response for GET /v1/service-types/{key}.
type ServiceTypeResponse struct {
	Key         string            `json:"key"`
	Abstract    bool              `json:"abstract"`
	Extends     string            `json:"extends,omitempty"`
	WSDLURI     string            `json:"wsdl_uri,omitempty"`
	HomepageURI string            `json:"homepage_uri,omitempty"`
	Docs        map[string]string `json:"docs,omitempty"`
	Obsoletes   []string          `json:"obsoletes,omitempty"`
	ObsoletedBy []string          `json:"obsoleted_by,omitempty"`
}

// DocumentationResponse answers GET /v1/service-types/{key}?lang=.
type DocumentationResponse struct {
	Key      string `json:"key"`
	Language string `json:"language"`
	Location string `json:"location"`
}

// FromServiceType converts a domain service type to its HTTP response.
func FromServiceType(st models.ServiceType) ServiceTypeResponse {
	resp := ServiceTypeResponse{
		Key:         st.Key.String(),
		Abstract:    st.Abstract,
		Extends:     st.Extends.String(),
		WSDLURI:     st.WSDLURI,
		HomepageURI: st.HomepageURI,
		Obsoletes:   fromServiceKeys(st.Obsoletes),
		ObsoletedBy: fromServiceKeys(st.ObsoletedBy),
	}
	if len(st.Docs) > 0 {
		resp.Docs = make(map[string]string, len(st.Docs))
		for lang, loc := range st.Docs {
			resp.Docs[string(lang)] = loc
		}
	}
	return resp
}

func fromServiceKeys(keys []domain.ServiceKey) []string {
	if len(keys) == 0 {
		return nil
	}
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.String()
	}
	return out
}
