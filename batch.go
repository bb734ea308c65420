package folio

import (
	"time"

	"github.com/google/uuid"
)

// ImportBatch is the metadata of one broker import run: which source it
// came from and how far it got. Batches use optimistic concurrency: every
// update must present the version it read, and a mismatch is rejected with
// StaleBatchError instead of silently overwriting a concurrent run.
type ImportBatch struct {
	ID          string
	PortfolioID string
	Source      string // e.g. broker name or file name
	StartedAt   time.Time
	UpdatedAt   time.Time
	Posted      int // journal entries posted from this batch so far
	Failed      int // transactions rejected and left for manual resolution
	Version     int // incremented on every update
}

// NewImportBatch starts batch metadata for an import run.
func NewImportBatch(portfolioID, source string) *ImportBatch {
	now := time.Now().UTC()
	return &ImportBatch{
		ID:          uuid.NewString(),
		PortfolioID: portfolioID,
		Source:      source,
		StartedAt:   now,
		UpdatedAt:   now,
		Version:     1,
	}
}

// Touch records progress and bumps the version.
func (b *ImportBatch) Touch(posted, failed int) {
	b.Posted += posted
	b.Failed += failed
	b.UpdatedAt = time.Now().UTC()
	b.Version++
}

// BatchResult reports the outcome of posting a list of transactions.
type BatchResult struct {
	Entries []*JournalEntry
	Errors  []error
}

// PostBatch posts a list of transactions in order, recording progress on
// the batch metadata. A failing transaction is skipped and reported; the
// rest of the batch continues, matching how broker imports surface data
// errors for manual resolution. Each entry is built in full before it is
// appended, so a failure never leaves a partial entry behind.
func (b *Book) PostBatch(batch *ImportBatch, txs []Transaction, by Actor) BatchResult {
	var res BatchResult
	var posted, failed int
	for _, tx := range txs {
		e, err := b.Post(tx, by)
		if err != nil {
			failed++
			res.Errors = append(res.Errors, err)
			b.log.Warn().Err(err).Str("command", string(tx.What())).Msg("batch transaction rejected")
			continue
		}
		if e != nil {
			posted++
			res.Entries = append(res.Entries, e)
		}
	}
	batch.Touch(posted, failed)
	return res
}
