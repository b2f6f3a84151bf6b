package journal

import (
	"fmt"
	"testing"
	"time"
)

func TestAppendAssignsSequence(t *testing.T) {
	log := NewLog()
	at := time.UnixMilli(1700000000000)

	first := log.Append(Entry{NID: "DOC001", Stage: StageRetry, Level: LevelInfo, Message: "forced back to Pending", At: at})
	second := log.Append(Entry{NID: "DOC002", Stage: StageSync, Level: LevelInfo, Message: "record added", At: at})

	if first.Seq != 1 {
		t.Errorf("Expected seq 1, got %d", first.Seq)
	}
	if second.Seq != 2 {
		t.Errorf("Expected seq 2, got %d", second.Seq)
	}
}

func TestForRecordNewestFirst(t *testing.T) {
	log := NewLog()
	at := time.UnixMilli(1700000000000)

	for i := 0; i < 3; i++ {
		log.Append(Entry{NID: "DOC001", Stage: StagePipeline, Level: LevelInfo, Message: fmt.Sprintf("step %d", i), At: at})
	}

	entries := log.ForRecord("DOC001", 0)
	if len(entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(entries))
	}
	if entries[0].Message != "step 2" {
		t.Errorf("Expected newest entry first, got %q", entries[0].Message)
	}
	if entries[2].Message != "step 0" {
		t.Errorf("Expected oldest entry last, got %q", entries[2].Message)
	}
}

func TestForRecordHonorsLimit(t *testing.T) {
	log := NewLog()
	at := time.UnixMilli(1700000000000)

	for i := 0; i < 10; i++ {
		log.Append(Entry{NID: "DOC001", Stage: StagePipeline, Level: LevelInfo, Message: fmt.Sprintf("step %d", i), At: at})
	}

	entries := log.ForRecord("DOC001", 4)
	if len(entries) != 4 {
		t.Fatalf("Expected 4 entries, got %d", len(entries))
	}
	if entries[0].Message != "step 9" {
		t.Errorf("Expected newest entry first, got %q", entries[0].Message)
	}
	if entries[3].Message != "step 6" {
		t.Errorf("Expected window to end at step 6, got %q", entries[3].Message)
	}
}

func TestCapacityDropsOldest(t *testing.T) {
	log := NewLogWithCapacity(3)
	at := time.UnixMilli(1700000000000)

	for i := 0; i < 5; i++ {
		log.Append(Entry{NID: "DOC001", Stage: StagePipeline, Level: LevelInfo, Message: fmt.Sprintf("step %d", i), At: at})
	}

	if log.Len("DOC001") != 3 {
		t.Fatalf("Expected 3 retained entries, got %d", log.Len("DOC001"))
	}

	entries := log.ForRecord("DOC001", 0)
	if entries[len(entries)-1].Message != "step 2" {
		t.Errorf("Expected oldest retained entry to be step 2, got %q", entries[len(entries)-1].Message)
	}
	if entries[0].Seq != 5 {
		t.Errorf("Expected trimming to preserve sequence numbers, got %d", entries[0].Seq)
	}
}

func TestTimelinesAreIndependent(t *testing.T) {
	log := NewLogWithCapacity(2)
	at := time.UnixMilli(1700000000000)

	log.Append(Entry{NID: "DOC001", Stage: StageRetry, Level: LevelInfo, Message: "a", At: at})
	log.Append(Entry{NID: "DOC002", Stage: StageRetry, Level: LevelInfo, Message: "b", At: at})
	log.Append(Entry{NID: "DOC001", Stage: StageRetry, Level: LevelInfo, Message: "c", At: at})

	if log.Len("DOC001") != 2 {
		t.Errorf("Expected 2 entries for DOC001, got %d", log.Len("DOC001"))
	}
	if log.Len("DOC002") != 1 {
		t.Errorf("Expected 1 entry for DOC002, got %d", log.Len("DOC002"))
	}
}

func TestUnknownRecordIsEmpty(t *testing.T) {
	log := NewLog()

	if entries := log.ForRecord("DOC404", 0); len(entries) != 0 {
		t.Errorf("Expected empty timeline, got %d entries", len(entries))
	}
	if log.Len("DOC404") != 0 {
		t.Errorf("Expected zero length for unknown record")
	}
}
