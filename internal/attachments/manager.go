package attachments

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/yukikurage/taskdesk-api/internal/constants"
	"github.com/yukikurage/taskdesk-api/internal/models"
)

// ErrTooManyDocuments is returned when a task would hold more documents than allowed.
var ErrTooManyDocuments = fmt.Errorf("a task can hold at most %d documents", constants.MaxTaskDocuments)

// Failure describes one remote delete that did not succeed.
type Failure struct {
	DocumentID string `json:"_id"`
	PublicID   string `json:"public_id"`
	Error      string `json:"error"`
}

// Report summarises the remote side of a cascade.
type Report struct {
	Deleted int       `json:"deleted"`
	Failed  []Failure `json:"failed,omitempty"`
}

// OK reports whether every remote delete succeeded.
func (r Report) OK() bool {
	return len(r.Failed) == 0
}

// Manager deletes remote objects on behalf of task operations.
type Manager struct {
	remover Remover
	log     logrus.FieldLogger
}

// NewManager creates a Manager.
func NewManager(remover Remover, log logrus.FieldLogger) *Manager {
	return &Manager{remover: remover, log: log}
}

// CheckLimit rejects document lists longer than the per-task cap.
func CheckLimit(count int) error {
	if count > constants.MaxTaskDocuments {
		return ErrTooManyDocuments
	}
	return nil
}

// DeleteRemote deletes one remote object. Failures are logged and returned;
// callers decide whether they are fatal.
func (m *Manager) DeleteRemote(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	if err := m.remover.Remove(ctx, key); err != nil {
		m.log.WithError(err).WithField("public_id", key).Warn("Remote attachment delete failed")
		return err
	}
	return nil
}

// Cascade is an ordered, non-atomic sequence: remote deletes for docs
// first, then a single record mutation. Remote failures do not stop the
// sequence. A crash between the two phases leaves the record in place with
// some remote objects already gone.
type Cascade struct {
	manager *Manager
	docs    []models.TaskDocument
}

// Cascade starts a cascade over docs.
func (m *Manager) Cascade(docs ...models.TaskDocument) *Cascade {
	return &Cascade{manager: m, docs: docs}
}

// Run performs the remote deletes and then commit. The report is returned
// even when commit fails.
func (c *Cascade) Run(ctx context.Context, commit func(ctx context.Context) error) (Report, error) {
	report := Report{}
	for _, doc := range c.docs {
		if doc.PublicID == "" {
			continue
		}
		if err := c.manager.DeleteRemote(ctx, doc.PublicID); err != nil {
			report.Failed = append(report.Failed, Failure{
				DocumentID: doc.ID,
				PublicID:   doc.PublicID,
				Error:      err.Error(),
			})
			continue
		}
		report.Deleted++
	}

	if err := commit(ctx); err != nil {
		return report, err
	}
	return report, nil
}
