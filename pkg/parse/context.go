package parse

import (
	"context"

	"github.com/google/uuid"

	"github.com/Ramsey-B/fern/pkg/codelist"
	"github.com/Ramsey-B/fern/pkg/iatierrors"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/xmltree"
)

// Element aliases the generic XML tree node handlers receive.
type Element = xmltree.Element

// Context carries the state of one activity walk: the bundle being
// assembled, the current narrative owner, the financial row sub-element
// handlers are filling in, and every non-fatal error seen so far.
type Context struct {
	Ctx       context.Context
	Dataset   *models.Dataset
	Version   string
	Bundle    *models.ActivityBundle
	Codelists *codelist.Resolver

	errs         []*iatierrors.ParseError
	skipChildren bool

	ownerType string
	ownerID   string

	budget       *models.Budget
	disbursement *models.PlannedDisbursement
	transaction  *models.Transaction
	location     *models.Location
	documentLink *models.DocumentLink
	result       *models.Result
}

// NewContext starts a fresh walk context for one activity element.
func NewContext(ctx context.Context, ds *models.Dataset, version string, codelists *codelist.Resolver) *Context {
	return &Context{
		Ctx:       ctx,
		Dataset:   ds,
		Version:   version,
		Codelists: codelists,
		Bundle: &models.ActivityBundle{
			Activity: &models.Activity{
				ID:            uuid.New().String(),
				DatasetID:     ds.ID,
				SchemaVersion: version,
			},
		},
	}
}

// ValidCode reports whether code belongs to the named codelist. Without a
// resolver, or when the list has no loaded entries, every code passes.
func (c *Context) ValidCode(list, code string) bool {
	if c.Codelists == nil || !c.Codelists.HasList(list) {
		return true
	}
	return c.Codelists.Exists(list, code)
}

// Activity is shorthand for the activity row under assembly.
func (c *Context) Activity() *models.Activity {
	return c.Bundle.Activity
}

// AddError records a non-fatal parse error against the walk.
func (c *Context) AddError(err *iatierrors.ParseError) {
	if err.ActivityIdentifier == "" {
		err.ActivityIdentifier = c.Bundle.Activity.IATIIdentifier
	}
	c.errs = append(c.errs, err)
}

// Errors returns every error recorded during the walk.
func (c *Context) Errors() []*iatierrors.ParseError {
	return c.errs
}

// SkipChildren tells the walker not to descend into the current element.
// Reset after each dispatch.
func (c *Context) SkipChildren() {
	c.skipChildren = true
}

// SetNarrativeOwner registers the row subsequent narrative elements attach
// to. Each owner-bearing handler calls this as its element is entered.
func (c *Context) SetNarrativeOwner(ownerType, ownerID string) {
	c.ownerType = ownerType
	c.ownerID = ownerID
}

// NarrativeOwner returns the currently registered owner, if any.
func (c *Context) NarrativeOwner() (string, string, bool) {
	if c.ownerID == "" {
		return "", "", false
	}
	return c.ownerType, c.ownerID, true
}

// AddNarrative attaches a narrative to the current owner.
func (c *Context) AddNarrative(language *string, content string) {
	c.Bundle.Narratives = append(c.Bundle.Narratives, &models.Narrative{
		ActivityID: c.Bundle.Activity.ID,
		OwnerType:  c.ownerType,
		OwnerID:    c.ownerID,
		Language:   language,
		Content:    content,
	})
}
