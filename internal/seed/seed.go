// Package seed populates the record store with the development corpus.
// The corpus is hand-written and deterministic: refreshing it never
// duplicates records and never touches records already present.
package seed

import (
	"errors"
	"time"

	"github.com/nainya/docsim/pkg/document"
)

type fixture struct {
	nid        string
	name       string
	fileTypes  []string
	status     document.Status
	sliceCount int
	age        time.Duration // how far behind the store clock the record was last touched
	remark     string
}

var corpus = []fixture{
	{"DOC001", "Annual Financial Report 2025", []string{"PDF"}, document.StatusCompleted, 18, 72 * time.Hour, ""},
	{"DOC002", "Employee Onboarding Handbook", []string{"PDF", "DOCX"}, document.StatusCompleted, 9, 60 * time.Hour, ""},
	{"DOC003", "Q3 Compliance Review", []string{"DOCX"}, document.StatusPending, 0, 4 * time.Hour, ""},
	{"DOC004", "Infrastructure Cost Breakdown", []string{"XLSX"}, document.StatusProcessing, 3, 30 * time.Minute, ""},
	{"DOC005", "Vendor Contract Amendments", []string{"PDF"}, document.StatusRejected, 0, 48 * time.Hour, "conversion failed: encrypted source file"},
	{"DOC006", "Product Requirements Draft", []string{"MD"}, document.StatusPending, 0, 2 * time.Hour, ""},
	{"DOC007", "Customer Churn Analysis", []string{"XLSX", "CSV"}, document.StatusCompleted, 12, 96 * time.Hour, ""},
	{"DOC008", "Incident Postmortem 2025-07", []string{"MD", "PDF"}, document.StatusCompleted, 6, 120 * time.Hour, ""},
	{"DOC009", "Data Retention Policy", []string{"PDF"}, document.StatusPending, 0, time.Hour, ""},
	{"DOC010", "Sales Deck September", []string{"PPTX"}, document.StatusRejected, 2, 24 * time.Hour, "vectorization failed: empty extraction"},
	{"DOC011", "API Migration Guide", []string{"MD"}, document.StatusProcessing, 5, 10 * time.Minute, ""},
	{"DOC012", "Security Audit Findings", []string{"PDF", "XLSX"}, document.StatusCompleted, 15, 200 * time.Hour, ""},
	{"DOC013", "Localization Glossary", []string{"CSV"}, document.StatusPending, 0, 30 * time.Minute, ""},
	{"DOC014", "Board Meeting Minutes", []string{"DOCX"}, document.StatusCompleted, 4, 150 * time.Hour, ""},
}

// Populate fills the store from the corpus and returns how many records
// were added. Safe to call on a non-empty store.
func Populate(store *document.RecordStore) (int, error) {
	added, err := Refresh(store)
	return len(added), err
}

// Refresh inserts every corpus record missing from the store and returns
// their nids in corpus order. Records already present are left untouched,
// whatever state they have drifted into. This is the ingestion refresh
// behind the sync operation.
func Refresh(store *document.RecordStore) ([]string, error) {
	var added []string
	for _, f := range corpus {
		err := store.Insert(f.record(store.Now()))
		if errors.Is(err, document.ErrDuplicateID) {
			continue
		}
		if err != nil {
			return added, err
		}
		added = append(added, f.nid)
	}
	return added, nil
}

// Size returns the number of records in the corpus
func Size() int {
	return len(corpus)
}

func (f fixture) record(now time.Time) *document.DocumentRecord {
	touched := now.Add(-f.age)

	rec := &document.DocumentRecord{
		NID:             f.nid,
		Name:            f.name,
		FileTypes:       f.fileTypes,
		Status:          f.status,
		SliceCount:      f.sliceCount,
		UpdateTime:      touched,
		LastUpdateTime:  touched,
		StatusChangedAt: touched,
		Remark:          f.remark,
	}

	if f.status != document.StatusPending {
		actor := document.PipelineActor
		rec.HandledBy = &actor
	}
	return rec
}
