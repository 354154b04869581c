package handlers

import (
	"context"

	"github.com/chingu-voyages/member-demographics/pkg/models"
	"github.com/chingu-voyages/member-demographics/pkg/services"
)

// mockMemberService records the last call and returns err when set.
type mockMemberService struct {
	err error

	calls     int
	gotAttr   models.Attribute
	gotDates  *models.DateRange
	gotFilter *models.FilterRequest
	gotPage   models.Page
}

func (m *mockMemberService) Status() *services.StatusResponse {
	return &services.StatusResponse{Status: "ok", Table: "public.chingu_members", Backend: "postgres"}
}

func (m *mockMemberService) Attributes() *models.AttributesResponse {
	return &models.AttributesResponse{Attributes: []models.AttributeInfo{models.NewAttributeInfo(models.AttrGender)}}
}

func (m *mockMemberService) UniqueValues(ctx context.Context, attr models.Attribute) (*models.UniqueValuesResponse, error) {
	m.calls++
	m.gotAttr = attr
	if m.err != nil {
		return nil, m.err
	}
	return &models.UniqueValuesResponse{Attribute: attr.Name(), Values: []any{}}, nil
}

func (m *mockMemberService) CountByValue(ctx context.Context, attr models.Attribute, dates *models.DateRange) (*models.TableResponse, error) {
	m.calls++
	m.gotAttr, m.gotDates = attr, dates
	if m.err != nil {
		return nil, m.err
	}
	return &models.TableResponse{Response: []map[string]any{}}, nil
}

func (m *mockMemberService) FilterMembers(ctx context.Context, req *models.FilterRequest, page models.Page) (*models.TableResponse, error) {
	m.calls++
	m.gotFilter, m.gotPage = req, page
	if m.err != nil {
		return nil, m.err
	}
	return &models.TableResponse{Response: []map[string]any{}}, nil
}

func (m *mockMemberService) CountryCounts(ctx context.Context, req *models.FilterRequest) (*models.TableResponse, error) {
	m.calls++
	m.gotFilter = req
	if m.err != nil {
		return nil, m.err
	}
	return &models.TableResponse{Response: []map[string]any{}}, nil
}
