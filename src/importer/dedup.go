package importer

import (
	"context"

	"github.com/rs/zerolog"

	"famledger-server/src/models"
)

// KeySet is a set of transaction keys seen so far.
type KeySet map[models.TxKey]struct{}

func (s KeySet) Has(k models.TxKey) bool {
	_, ok := s[k]
	return ok
}

func (s KeySet) Add(k models.TxKey) {
	s[k] = struct{}{}
}

// FlagInFile marks every row whose key already appeared earlier in the same file.
// The set is updated with every row, so in a run of three equal keys the second and
// third are flagged.
func FlagInFile(cands []models.Candidate) {
	seen := KeySet{}
	for i := range cands {
		cands[i].IsDuplicate = seen.Has(cands[i].Key)
		seen.Add(cands[i].Key)
	}
}

// Detector settles the duplicate status of a whole upload against earlier files of
// the same upload and against stored transactions.
type Detector struct {
	finder DuplicateFinder
	log    zerolog.Logger
}

func NewDetector(finder DuplicateFinder, log zerolog.Logger) *Detector {
	return &Detector{finder: finder, log: log}
}

// Reconcile expects each file's candidates already flagged by FlagInFile and returns
// all candidates in upload order with IsDuplicate and ForceImport settled:
//
//   - seen in an earlier file, or already stored: duplicate, not forced
//   - repeated only inside its own file: kept as a legitimate repeat, forced
//   - otherwise: not forced
//
// The asymmetric default for in-file repeats is intentional; small identical
// charges on one statement are usually real.
func (d *Detector) Reconcile(ctx context.Context, familyID int64, files [][]models.Candidate) []models.Candidate {
	global := KeySet{}
	var all []models.Candidate
	for _, cands := range files {
		for i := range cands {
			c := &cands[i]
			stored := d.stored(ctx, familyID, *c)
			switch {
			case global.Has(c.Key) || stored:
				c.IsDuplicate = true
				c.ForceImport = false
			case c.IsDuplicate:
				c.ForceImport = true
			default:
				c.ForceImport = false
			}
		}
		for _, c := range cands {
			global.Add(c.Key)
		}
		all = append(all, cands...)
	}
	return all
}

// stored treats a failed lookup as "not stored" so one bad query cannot abort an
// import; the commit re-checks inside its transaction.
func (d *Detector) stored(ctx context.Context, familyID int64, c models.Candidate) bool {
	dup, err := d.finder.HasDuplicate(ctx, familyID, c)
	if err != nil {
		d.log.Error().Err(err).
			Str("date", c.Key.Date).
			Str("amount", c.Key.Amount).
			Int64("account_id", c.AccountID).
			Str("description", c.Description).
			Msg("Duplicate check failed")
		return false
	}
	return dup
}
