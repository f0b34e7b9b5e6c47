// Package crm mirrors accepted briefs into a Notion leads database so the
// team works its queue there. The sync is best-effort: failures are logged by
// the caller and never affect the submission flow.
package crm

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/lead-intake/internal/model"
)

// Client defines the Notion API operations used by the sync.
type Client interface {
	CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error)
}

// Sync pushes briefs into a Notion database, throttled to Notion's 3 req/s
// limit.
type Sync struct {
	client  Client
	dbID    string
	limiter *rate.Limiter
}

// notionClient adapts *notionapi.Client to the Client interface.
type notionClient struct {
	inner *notionapi.Client
}

func (c *notionClient) CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	return c.inner.Page.Create(ctx, req)
}

// New creates a Sync. Returns nil when no token is configured, which
// disables syncing.
func New(token, dbID string) *Sync {
	if token == "" || dbID == "" {
		return nil
	}
	return &Sync{
		client:  &notionClient{inner: notionapi.NewClient(notionapi.Token(token))},
		dbID:    dbID,
		limiter: rate.NewLimiter(3, 1),
	}
}

// newTestSync wires a stub client; used by package tests.
func newTestSync(client Client, dbID string) *Sync {
	return &Sync{client: client, dbID: dbID, limiter: rate.NewLimiter(rate.Inf, 1)}
}

// PushBrief creates a page for the brief in the leads database.
func (s *Sync) PushBrief(ctx context.Context, b *model.Brief) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "crm: rate limit")
	}

	title := b.Input.Name
	if b.Input.Company != "" {
		title = fmt.Sprintf("%s (%s)", b.Input.Name, b.Input.Company)
	}

	props := notionapi.Properties{
		"Name": notionapi.TitleProperty{
			Title: []notionapi.RichText{
				{Text: &notionapi.Text{Content: title}},
			},
		},
		"Email": notionapi.EmailProperty{
			Email: b.Input.Email,
		},
		"Budget": notionapi.SelectProperty{
			Select: notionapi.Option{Name: b.Input.BudgetRange},
		},
		"Status": notionapi.SelectProperty{
			Select: notionapi.Option{Name: string(b.Status)},
		},
		"Complexity": notionapi.SelectProperty{
			Select: notionapi.Option{Name: string(b.Complexity)},
		},
		"Estimate high": notionapi.NumberProperty{
			Number: b.Analysis.TotalEstimate.Max,
		},
		"Brief ID": notionapi.RichTextProperty{
			RichText: []notionapi.RichText{
				{Text: &notionapi.Text{Content: b.ID}},
			},
		},
	}

	_, err := s.client.CreatePage(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(s.dbID),
		},
		Properties: props,
	})
	if err != nil {
		return eris.Wrapf(err, "crm: create lead page for brief %s", b.ID)
	}
	return nil
}
