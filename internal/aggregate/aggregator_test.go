package aggregate

import (
	"reflect"
	"testing"

	"github.com/ppiankov/bookgeo/internal/model"
)

func TestAggregator_MergesVariantsOfOneName(t *testing.T) {
	chunk := model.TextChunk{Index: 0, StartOffset: 0, EndOffset: 120}
	agg := New("en")
	agg.Add(chunk, []model.RawMention{
		{SurfaceText: "Paris", ChunkIndex: 0, LocalOffset: 10},
		{SurfaceText: "paris", ChunkIndex: 0, LocalOffset: 40},
		{SurfaceText: "Paris,", ChunkIndex: 0, LocalOffset: 90},
	})

	candidates := agg.Candidates()
	if len(candidates) != 1 {
		t.Fatalf("Expected 1 candidate, got %d", len(candidates))
	}

	c := candidates[0]
	if c.NormalizedName != "paris" {
		t.Errorf("Expected normalized name paris, got %q", c.NormalizedName)
	}
	if c.MentionCount != 3 {
		t.Errorf("Expected 3 mentions, got %d", c.MentionCount)
	}
	if want := []int{10, 40, 90}; !reflect.DeepEqual(c.MentionOffsets, want) {
		t.Errorf("Expected offsets %v, got %v", want, c.MentionOffsets)
	}
	if want := []string{"Paris", "Paris,", "paris"}; !reflect.DeepEqual(c.SurfaceVariants, want) {
		t.Errorf("Expected variants %v, got %v", want, c.SurfaceVariants)
	}
	if c.Language != "en" {
		t.Errorf("Expected language en, got %q", c.Language)
	}
}

func TestAggregator_AbsoluteOffsetsAcrossChunks(t *testing.T) {
	agg := New("en")
	agg.Add(model.TextChunk{Index: 0, StartOffset: 0, EndOffset: 100},
		[]model.RawMention{{SurfaceText: "London", ChunkIndex: 0, LocalOffset: 25}})
	agg.Add(model.TextChunk{Index: 1, StartOffset: 100, EndOffset: 200},
		[]model.RawMention{{SurfaceText: "London", ChunkIndex: 1, LocalOffset: 7}})

	candidates := agg.Candidates()
	if len(candidates) != 1 {
		t.Fatalf("Expected 1 candidate, got %d", len(candidates))
	}
	if want := []int{25, 107}; !reflect.DeepEqual(candidates[0].MentionOffsets, want) {
		t.Errorf("Expected absolute offsets %v, got %v", want, candidates[0].MentionOffsets)
	}
}

func TestAggregator_OffsetsSortedEvenWhenChunksArriveOutOfOrder(t *testing.T) {
	agg := New("en")
	agg.Add(model.TextChunk{Index: 1, StartOffset: 100, EndOffset: 200},
		[]model.RawMention{{SurfaceText: "Rome", ChunkIndex: 1, LocalOffset: 0}})
	agg.Add(model.TextChunk{Index: 0, StartOffset: 0, EndOffset: 100},
		[]model.RawMention{{SurfaceText: "Rome", ChunkIndex: 0, LocalOffset: 5}})

	c := agg.Candidates()[0]
	if want := []int{5, 100}; !reflect.DeepEqual(c.MentionOffsets, want) {
		t.Errorf("Expected sorted offsets %v, got %v", want, c.MentionOffsets)
	}
}

func TestAggregator_DuplicateOffsetsCollapse(t *testing.T) {
	chunk := model.TextChunk{Index: 0, StartOffset: 0, EndOffset: 50}
	agg := New("en")
	agg.Add(chunk, []model.RawMention{
		{SurfaceText: "Oslo", LocalOffset: 12},
		{SurfaceText: "Oslo", LocalOffset: 12},
	})

	c := agg.Candidates()[0]
	if c.MentionCount != 1 || len(c.MentionOffsets) != 1 {
		t.Errorf("Expected duplicate offsets to collapse, got count %d offsets %v",
			c.MentionCount, c.MentionOffsets)
	}
}

func TestAggregator_DiscardsNoise(t *testing.T) {
	chunk := model.TextChunk{Index: 0, StartOffset: 0, EndOffset: 100}
	agg := New("en")
	agg.Add(chunk, []model.RawMention{
		{SurfaceText: "1984", LocalOffset: 0},
		{SurfaceText: "...", LocalOffset: 10},
		{SurfaceText: "X", LocalOffset: 20},
		{SurfaceText: "", LocalOffset: 30},
		{SurfaceText: "Dublin", LocalOffset: 40},
	})

	candidates := agg.Candidates()
	if len(candidates) != 1 {
		t.Fatalf("Expected only the real place to survive, got %d candidates", len(candidates))
	}
	if candidates[0].NormalizedName != "dublin" {
		t.Errorf("Expected dublin, got %q", candidates[0].NormalizedName)
	}
}

func TestAggregator_FirstMentionOrder(t *testing.T) {
	chunk := model.TextChunk{Index: 0, StartOffset: 0, EndOffset: 300}
	agg := New("en")
	agg.Add(chunk, []model.RawMention{
		{SurfaceText: "Berlin", LocalOffset: 200},
		{SurfaceText: "Lisbon", LocalOffset: 10},
		{SurfaceText: "Berlin", LocalOffset: 20},
		{SurfaceText: "Madrid", LocalOffset: 50},
	})

	candidates := agg.Candidates()
	got := make([]string, len(candidates))
	for i, c := range candidates {
		got[i] = c.NormalizedName
	}
	if want := []string{"lisbon", "berlin", "madrid"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Expected order %v, got %v", want, got)
	}
}

func TestAggregator_CandidatesIsRepeatable(t *testing.T) {
	chunk := model.TextChunk{Index: 0, StartOffset: 0, EndOffset: 100}
	agg := New("es")
	agg.Add(chunk, []model.RawMention{
		{SurfaceText: "Sevilla", LocalOffset: 3},
		{SurfaceText: "Granada", LocalOffset: 30},
		{SurfaceText: "sevilla", LocalOffset: 60},
	})

	first := agg.Candidates()
	second := agg.Candidates()
	if !reflect.DeepEqual(first, second) {
		t.Error("Expected repeated Candidates calls to return equal results")
	}
}

func TestAggregator_SameInputDifferentOrderSameResult(t *testing.T) {
	mentions := []model.RawMention{
		{SurfaceText: "Quito", LocalOffset: 5},
		{SurfaceText: "Lima", LocalOffset: 15},
		{SurfaceText: "Quito,", LocalOffset: 40},
	}
	chunk := model.TextChunk{Index: 0, StartOffset: 0, EndOffset: 100}

	forward := New("es")
	forward.Add(chunk, mentions)

	reversed := New("es")
	reversed.Add(chunk, []model.RawMention{mentions[2], mentions[1], mentions[0]})

	if !reflect.DeepEqual(forward.Candidates(), reversed.Candidates()) {
		t.Error("Expected aggregation to be order-independent")
	}
}
