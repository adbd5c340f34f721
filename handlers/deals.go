// ABOUTME: Deal MCP tool handlers
// ABOUTME: Implements create_deal, update_deal and delete_deal through the coordinator
package handlers

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/incial/crm/app"
	"github.com/incial/crm/models"
)

type DealHandlers struct {
	app *app.App
}

func NewDealHandlers(a *app.App) *DealHandlers {
	return &DealHandlers{app: a}
}

type CreateDealInput struct {
	Company      string   `json:"company" jsonschema:"Company name (required)"`
	ContactName  string   `json:"contact_name,omitempty" jsonschema:"Primary contact at the company"`
	Email        string   `json:"email,omitempty" jsonschema:"Contact email"`
	Phone        string   `json:"phone,omitempty" jsonschema:"Contact phone"`
	Status       string   `json:"status,omitempty" jsonschema:"Deal status: lead, on progress, Quote Sent, onboarded, completed, drop (default lead)"`
	AssignedTo   string   `json:"assigned_to,omitempty" jsonschema:"Display name of the owner"`
	DealValue    float64  `json:"deal_value,omitempty" jsonschema:"Deal value"`
	NextFollowUp string   `json:"next_follow_up,omitempty" jsonschema:"Next follow-up date (YYYY-MM-DD)"`
	Tags         []string `json:"tags,omitempty" jsonschema:"Free-form tags"`
	Work         []string `json:"work,omitempty" jsonschema:"Work types such as Branding or Social Media"`
	LeadSources  []string `json:"lead_sources,omitempty" jsonschema:"Where the lead came from"`
}

func (h *DealHandlers) CreateDeal(ctx context.Context, request *mcp.CallToolRequest, input CreateDealInput) (*mcp.CallToolResult, DealOutput, error) {
	if input.Company == "" {
		return nil, DealOutput{}, fmt.Errorf("company is required")
	}

	deal := models.Deal{
		Company:      input.Company,
		ContactName:  input.ContactName,
		Email:        input.Email,
		Phone:        input.Phone,
		Status:       input.Status,
		AssignedTo:   input.AssignedTo,
		DealValue:    input.DealValue,
		NextFollowUp: models.Date(input.NextFollowUp),
		Tags:         input.Tags,
		Work:         input.Work,
		LeadSources:  input.LeadSources,
	}

	out, err := h.app.Deals.Create(ctx, deal)
	if err != nil {
		return nil, DealOutput{}, fmt.Errorf("failed to create deal: %w", err)
	}
	return nil, dealToOutput(out.Entity, h.app.Now()), nil
}

type UpdateDealInput struct {
	ID           int64     `json:"id" jsonschema:"Deal ID (required)"`
	Company      *string   `json:"company,omitempty" jsonschema:"Updated company name"`
	ContactName  *string   `json:"contact_name,omitempty" jsonschema:"Updated contact name"`
	Email        *string   `json:"email,omitempty" jsonschema:"Updated email"`
	Phone        *string   `json:"phone,omitempty" jsonschema:"Updated phone"`
	Status       *string   `json:"status,omitempty" jsonschema:"Updated status"`
	AssignedTo   *string   `json:"assigned_to,omitempty" jsonschema:"Updated owner"`
	DealValue    *float64  `json:"deal_value,omitempty" jsonschema:"Updated deal value"`
	NextFollowUp *string   `json:"next_follow_up,omitempty" jsonschema:"Updated follow-up date; empty string clears it"`
	LastContact  *string   `json:"last_contact,omitempty" jsonschema:"Date of the last contact"`
	Tags         *[]string `json:"tags,omitempty" jsonschema:"Replacement tags"`
	Work         *[]string `json:"work,omitempty" jsonschema:"Replacement work types"`
	LeadSources  *[]string `json:"lead_sources,omitempty" jsonschema:"Replacement lead sources"`
}

func (h *DealHandlers) UpdateDeal(ctx context.Context, request *mcp.CallToolRequest, input UpdateDealInput) (*mcp.CallToolResult, DealOutput, error) {
	if input.ID == 0 {
		return nil, DealOutput{}, fmt.Errorf("id is required")
	}

	patch := models.DealPatch{
		Company:      input.Company,
		ContactName:  input.ContactName,
		Email:        input.Email,
		Phone:        input.Phone,
		Status:       input.Status,
		AssignedTo:   input.AssignedTo,
		DealValue:    input.DealValue,
		NextFollowUp: datePtr(input.NextFollowUp),
		LastContact:  datePtr(input.LastContact),
		Tags:         input.Tags,
		Work:         input.Work,
		LeadSources:  input.LeadSources,
	}
	if patch.IsEmpty() {
		return nil, DealOutput{}, fmt.Errorf("nothing to update")
	}

	out, err := h.app.Deals.Update(ctx, input.ID, patch)
	if err != nil {
		return nil, DealOutput{}, fmt.Errorf("failed to update deal: %w", err)
	}
	return nil, dealToOutput(out.Entity, h.app.Now()), nil
}

type DeleteInput struct {
	ID int64 `json:"id" jsonschema:"Record ID (required)"`
}

func (h *DealHandlers) DeleteDeal(ctx context.Context, request *mcp.CallToolRequest, input DeleteInput) (*mcp.CallToolResult, DeleteOutput, error) {
	if input.ID == 0 {
		return nil, DeleteOutput{}, fmt.Errorf("id is required")
	}
	out, err := h.app.Deals.Delete(ctx, input.ID)
	if err != nil {
		return nil, DeleteOutput{}, fmt.Errorf("failed to delete deal: %w", err)
	}
	return nil, DeleteOutput{ID: input.ID, Deleted: true, Token: out.Token}, nil
}

func datePtr(s *string) *models.Date {
	if s == nil {
		return nil
	}
	d := models.Date(*s)
	return &d
}
