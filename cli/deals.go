// ABOUTME: Deal CLI commands
// ABOUTME: Human-friendly commands for managing deals
package cli

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/incial/crm/app"
	"github.com/incial/crm/models"
	"github.com/incial/crm/views"
)

// AddDealCommand adds a new deal.
func AddDealCommand(a *app.App, args []string) error {
	fs := flag.NewFlagSet("add-deal", flag.ContinueOnError)
	company := fs.String("company", "", "Company name (required)")
	contact := fs.String("contact", "", "Contact name")
	email := fs.String("email", "", "Contact email")
	phone := fs.String("phone", "", "Contact phone")
	status := fs.String("status", models.DealLead, "Status (lead, on progress, Quote Sent, onboarded, completed, drop)")
	assigned := fs.String("assigned-to", "", "Owner display name")
	value := fs.Float64("value", 0, "Deal value")
	followUp := fs.String("follow-up", "", "Next follow-up date (YYYY-MM-DD)")
	work := fs.String("work", "", "Comma-separated work types")
	tags := fs.String("tags", "", "Comma-separated tags")
	sources := fs.String("sources", "", "Comma-separated lead sources")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *company == "" {
		return fmt.Errorf("--company is required")
	}

	res, err := a.Deals.Create(context.Background(), models.Deal{
		Company:      *company,
		ContactName:  *contact,
		Email:        *email,
		Phone:        *phone,
		Status:       *status,
		AssignedTo:   *assigned,
		DealValue:    *value,
		NextFollowUp: models.Date(*followUp),
		Work:         splitList(*work),
		Tags:         splitList(*tags),
		LeadSources:  splitList(*sources),
	})
	if err != nil {
		return fmt.Errorf("failed to create deal: %w", err)
	}

	deal := res.Entity
	_, _ = fmt.Fprintf(out, "✓ Deal created: %s (ID: %d)\n", deal.Company, deal.ID)
	_, _ = fmt.Fprintf(out, "  Status: %s\n", deal.Status)
	if deal.ReferenceID != "" {
		_, _ = fmt.Fprintf(out, "  Reference: %s\n", deal.ReferenceID)
	}
	if deal.DealValue > 0 {
		_, _ = fmt.Fprintf(out, "  Value: %.2f\n", deal.DealValue)
	}
	return nil
}

// ListDealsCommand lists deals through the view pipeline.
func ListDealsCommand(a *app.App, args []string) error {
	fs := flag.NewFlagSet("list-deals", flag.ContinueOnError)
	vf := addViewFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	mode, opts, err := vf.options(a.Actor(), a.Terminals().Deals, models.DealStatuses)
	if err != nil {
		return err
	}
	p, err := views.Project(mode, a.Deals.Snapshot(), opts)
	if err != nil {
		return err
	}

	now := a.Now()
	printProjection(p, "ID\tCOMPANY\tSTATUS\tOWNER\tVALUE\tFOLLOW-UP\tREF", func(d models.Deal) string {
		followUp := d.NextFollowUp.String()
		if state := d.FollowUpStatus(now); state == models.FollowUpOverdue || state == models.FollowUpToday {
			followUp += " (" + string(state) + ")"
		}
		return fmt.Sprintf("%d\t%s\t%s\t%s\t%.0f\t%s\t%s",
			d.ID, d.Company, d.Status, orDash(d.AssignedTo), d.DealValue, orDash(followUp), orDash(d.ReferenceID))
	})
	return nil
}

// UpdateDealCommand updates the fields passed as flags.
func UpdateDealCommand(a *app.App, args []string) error {
	fs := flag.NewFlagSet("update-deal", flag.ContinueOnError)
	company := fs.String("company", "", "Company name")
	contact := fs.String("contact", "", "Contact name")
	email := fs.String("email", "", "Contact email")
	phone := fs.String("phone", "", "Contact phone")
	status := fs.String("status", "", "Status")
	assigned := fs.String("assigned-to", "", "Owner display name")
	value := fs.Float64("value", 0, "Deal value")
	followUp := fs.String("follow-up", "", "Next follow-up date; empty clears it")
	lastContact := fs.String("last-contact", "", "Date of last contact")
	work := fs.String("work", "", "Comma-separated work types")
	tags := fs.String("tags", "", "Comma-separated tags")
	sources := fs.String("sources", "", "Comma-separated lead sources")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	id, err := parseID(fs, "deal")
	if err != nil {
		return err
	}

	set := visited(fs)
	patch := models.DealPatch{
		Company:      stringIf(set, "company", company),
		ContactName:  stringIf(set, "contact", contact),
		Email:        stringIf(set, "email", email),
		Phone:        stringIf(set, "phone", phone),
		Status:       stringIf(set, "status", status),
		AssignedTo:   stringIf(set, "assigned-to", assigned),
		NextFollowUp: dateIf(set, "follow-up", followUp),
		LastContact:  dateIf(set, "last-contact", lastContact),
		Work:         listIf(set, "work", work),
		Tags:         listIf(set, "tags", tags),
		LeadSources:  listIf(set, "sources", sources),
	}
	if set["value"] {
		patch.DealValue = value
	}
	if patch.IsEmpty() {
		return fmt.Errorf("nothing to update; pass at least one field flag")
	}

	res, err := a.Deals.Update(context.Background(), id, patch)
	if err != nil {
		return fmt.Errorf("failed to update deal: %w", err)
	}

	deal := res.Entity
	_, _ = fmt.Fprintf(out, "✓ Deal updated: %s (ID: %d)\n", deal.Company, deal.ID)
	_, _ = fmt.Fprintf(out, "  Status: %s\n", deal.Status)
	if deal.ReferenceID != "" {
		_, _ = fmt.Fprintf(out, "  Reference: %s\n", deal.ReferenceID)
	}
	return nil
}

// DeleteDealCommand deletes a deal.
func DeleteDealCommand(a *app.App, args []string) error {
	fs := flag.NewFlagSet("delete-deal", flag.ContinueOnError)
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	id, err := parseID(fs, "deal")
	if err != nil {
		return err
	}

	name := fmt.Sprintf("#%d", id)
	if deal, ok := a.Deals.Get(id); ok {
		name = strings.TrimSpace(deal.Company)
	}

	if _, err := a.Deals.Delete(context.Background(), id); err != nil {
		return fmt.Errorf("failed to delete deal: %w", err)
	}

	_, _ = fmt.Fprintf(out, "✓ Deleted deal: %s\n", name)
	return nil
}
