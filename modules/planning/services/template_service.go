package services

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/planventa/planventa/modules/planning/importing"
)

// TemplateService serves blank import templates. Rendered payloads are
// cached because schemas are static, so an entry never goes stale.
type TemplateService struct {
	cache *lru.Cache[string, []byte]
}

func NewTemplateService() (*TemplateService, error) {
	cache, err := lru.New[string, []byte](2 * len(importing.AllEntityTypes()))
	if err != nil {
		return nil, err
	}
	return &TemplateService{cache: cache}, nil
}

// Template returns the blank import file for an entity type together with
// its content type and download name.
func (s *TemplateService) Template(ctx context.Context, entityType, format string) ([]byte, string, string, error) {
	t, ok := importing.ParseEntityType(entityType)
	if !ok {
		return nil, "", "", importing.NewCriticalError(importing.CodeUnknownEntityType, map[string]string{
			"value": entityType,
		})
	}
	if format != importing.FormatExcel {
		format = importing.FormatCSV
	}

	key := fmt.Sprintf("%s/%s", t, format)
	if payload, ok := s.cache.Get(key); ok {
		return payload, importing.ContentTypeFor(format), importing.TemplateFileName(t, format), nil
	}

	payload, err := importing.Template(ctx, t, format)
	if err != nil {
		return nil, "", "", err
	}
	s.cache.Add(key, payload)
	return payload, importing.ContentTypeFor(format), importing.TemplateFileName(t, format), nil
}

// Headers lists the template columns for an entity type, required columns
// first.
func (s *TemplateService) Headers(entityType string) ([]string, error) {
	t, ok := importing.ParseEntityType(entityType)
	if !ok {
		return nil, importing.NewCriticalError(importing.CodeUnknownEntityType, map[string]string{
			"value": entityType,
		})
	}
	headers, _ := importing.TemplateHeaders(t)
	return headers, nil
}
