package handler

import (
	"onsd/internal/registry/models"
	"onsd/pkg/domain"
)

// CreateCodeRequest is the HTTP request for POST /v1/codes.
type CreateCodeRequest struct {
	Key string `json:"key"`
}

func (r CreateCodeRequest) Parse() (domain.CodeKey, error) {
	return domain.ParseCodeKey(r.Key)
}

// CreateRecordRequest is the HTTP request for POST /v1/records.
type CreateRecordRequest struct {
	Key         string `json:"key"`
	GS1Code     string `json:"gs1_code"`
	ServiceType string `json:"service_type"`
	Flags       uint8  `json:"flags"`
	Pattern     string `json:"pattern"`
}

func (r CreateRecordRequest) Parse() (models.ONSRecord, error) {
	key, err := domain.ParseRecordKey(r.Key)
	if err != nil {
		return models.ONSRecord{}, err
	}
	code, err := domain.ParseCodeKey(r.GS1Code)
	if err != nil {
		return models.ONSRecord{}, err
	}
	svc, err := domain.ParseServiceKey(r.ServiceType)
	if err != nil {
		return models.ONSRecord{}, err
	}
	return models.ONSRecord{
		Key:         key,
		GS1Code:     code,
		ServiceType: svc,
		Flags:       models.RecordFlags(r.Flags),
		Pattern:     r.Pattern,
	}, nil
}

// CreateServiceTypeRequest is the HTTP request for POST /v1/service-types.
type CreateServiceTypeRequest struct {
	Key         string            `json:"key"`
	Abstract    bool              `json:"abstract"`
	Extends     string            `json:"extends,omitempty"`
	WSDLURI     string            `json:"wsdl_uri,omitempty"`
	HomepageURI string            `json:"homepage_uri,omitempty"`
	Docs        map[string]string `json:"docs,omitempty"`
	Obsoletes   []string          `json:"obsoletes,omitempty"`
	ObsoletedBy []string          `json:"obsoleted_by,omitempty"`
}

func (r CreateServiceTypeRequest) Parse() (models.ServiceType, error) {
	key, err := domain.ParseServiceKey(r.Key)
	if err != nil {
		return models.ServiceType{}, err
	}
	st := models.ServiceType{
		Key:         key,
		Abstract:    r.Abstract,
		Extends:     domain.ServiceKey(r.Extends),
		WSDLURI:     r.WSDLURI,
		HomepageURI: r.HomepageURI,
		Obsoletes:   toServiceKeys(r.Obsoletes),
		ObsoletedBy: toServiceKeys(r.ObsoletedBy),
	}
	if len(r.Docs) > 0 {
		st.Docs = make(map[domain.LanguageCode]string, len(r.Docs))
		for lang, loc := range r.Docs {
			st.Docs[domain.LanguageCode(lang)] = loc
		}
	}
	return st, nil
}

func toServiceKeys(raw []string) []domain.ServiceKey {
	if len(raw) == 0 {
		return nil
	}
	keys := make([]domain.ServiceKey, len(raw))
	for i, s := range raw {
		keys[i] = domain.ServiceKey(s)
	}
	return keys
}
