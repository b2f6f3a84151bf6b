package server

import (
	"github.com/nainya/docsim/pkg/document"
	"github.com/nainya/docsim/pkg/fragment"
	"github.com/nainya/docsim/pkg/journal"
)

// documentView is the wire shape of one registry record. Timestamps travel
// as Unix epoch milliseconds; handledBy is null until an actor claims the
// record.
type documentView struct {
	NID             string   `json:"nid"`
	Name            string   `json:"name"`
	FileTypes       []string `json:"fileTypes"`
	Status          int      `json:"status"`
	StatusText      string   `json:"statusText"`
	SliceCount      int      `json:"sliceCount"`
	UpdateTime      int64    `json:"updateTime"`
	LastUpdateTime  int64    `json:"lastUpdateTime"`
	StatusChangedAt int64    `json:"statusChangedAt"`
	HandledBy       *string  `json:"handledBy"`
	Remark          string   `json:"remark"`
}

func toDocumentView(rec *document.DocumentRecord) documentView {
	return documentView{
		NID:             rec.NID,
		Name:            rec.Name,
		FileTypes:       rec.FileTypes,
		Status:          int(rec.Status),
		StatusText:      rec.Status.String(),
		SliceCount:      rec.SliceCount,
		UpdateTime:      rec.UpdateTime.UnixMilli(),
		LastUpdateTime:  rec.LastUpdateTime.UnixMilli(),
		StatusChangedAt: rec.StatusChangedAt.UnixMilli(),
		HandledBy:       rec.HandledBy,
		Remark:          rec.Remark,
	}
}

func toDocumentViews(recs []*document.DocumentRecord) []documentView {
	views := make([]documentView, 0, len(recs))
	for _, rec := range recs {
		views = append(views, toDocumentView(rec))
	}
	return views
}

type listResponse struct {
	Items    []documentView `json:"items"`
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"pageSize"`
}

// batchRequest selects records for retry and reset. FileTypes wins over
// NIDs when both are present. Policy is ignored by retry.
type batchRequest struct {
	NIDs      []string `json:"nids"`
	FileTypes []string `json:"fileTypes"`
	Policy    string   `json:"policy"`
}

type resetAllRequest struct {
	Policy string `json:"policy"`
}

type batchResponse struct {
	Message       string `json:"message"`
	AffectedCount int    `json:"affectedCount"`
}

// timestampsRequest carries epoch-millisecond overrides. Absent fields are
// left alone; at least one must be present.
type timestampsRequest struct {
	UpdateTime     *int64 `json:"updateTime"`
	LastUpdateTime *int64 `json:"lastUpdateTime"`
}

type timestampChange struct {
	Old int64 `json:"old"`
	New int64 `json:"new"`
}

type timestampsResponse struct {
	NID            string           `json:"nid"`
	UpdateTime     *timestampChange `json:"updateTime,omitempty"`
	LastUpdateTime *timestampChange `json:"lastUpdateTime,omitempty"`
}

type fragmentsResponse struct {
	Items []fragment.Fragment `json:"items"`
	Total int                 `json:"total"`
}

// journalEntryView mirrors journal.Entry with the timestamp flattened to
// epoch milliseconds.
type journalEntryView struct {
	Seq     uint64 `json:"seq"`
	Stage   string `json:"stage"`
	Level   string `json:"level"`
	Message string `json:"message"`
	TaskID  string `json:"taskId,omitempty"`
	At      int64  `json:"at"`
}

func toJournalViews(entries []journal.Entry) []journalEntryView {
	views := make([]journalEntryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, journalEntryView{
			Seq:     e.Seq,
			Stage:   e.Stage,
			Level:   e.Level,
			Message: e.Message,
			TaskID:  e.TaskID,
			At:      e.At.UnixMilli(),
		})
	}
	return views
}

type journalResponse struct {
	Items []journalEntryView `json:"items"`
	Total int                `json:"total"`
}

// statsResponse aggregates the registry. SuccessRate is the percentage of
// terminal records that completed, rounded to two decimals, zero when no
// record has reached a terminal status yet.
type statsResponse struct {
	Total       int     `json:"total"`
	Pending     int     `json:"pending"`
	Processing  int     `json:"processing"`
	Completed   int     `json:"completed"`
	Rejected    int     `json:"rejected"`
	SuccessRate float64 `json:"successRate"`
}
