package console

import (
	"sync"

	"github.com/facto/facto/internal/domain/invoice"
	"github.com/facto/facto/internal/pdfgen"
	"github.com/facto/facto/internal/types"
)

// Workspace holds the template and draft being edited
type Workspace struct {
	mu          sync.RWMutex
	template    types.TemplateType
	draft       *invoice.Draft
	planChooser bool
}

func NewWorkspace(template types.TemplateType, draft *invoice.Draft) *Workspace {
	if template == "" {
		template = types.DefaultTemplate
	}
	return &Workspace{template: template, draft: draft}
}

func (w *Workspace) Template() types.TemplateType {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.template
}

func (w *Workspace) Draft() *invoice.Draft {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.draft
}

func (w *Workspace) SetTemplate(t types.TemplateType) {
	w.mu.Lock()
	w.template = t
	w.mu.Unlock()
}

func (w *Workspace) SetDraft(d *invoice.Draft) {
	w.mu.Lock()
	w.draft = d
	w.mu.Unlock()
}

func (w *Workspace) ShowPlanChooser() {
	w.mu.Lock()
	w.planChooser = true
	w.mu.Unlock()
}

func (w *Workspace) HidePlanChooser() {
	w.mu.Lock()
	w.planChooser = false
	w.mu.Unlock()
}

func (w *Workspace) PlanChooserVisible() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.planChooser
}

func (w *Workspace) Surface() pdfgen.Surface {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return pdfgen.InvoiceSurface(w.draft, w.template)
}
