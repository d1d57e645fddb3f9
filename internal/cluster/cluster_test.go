package cluster_test

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"crossvoice/internal/cluster"
	"crossvoice/internal/embed"
)

// rec builds a record with a distinctive direction per voice. Cosine
// distance ignores magnitude, so scaled copies of a base vector land in the
// same cluster.
func rec(file, speaker string, base []float32, scale float32) embed.Record {
	vec := make([]float32, len(base))
	for i, v := range base {
		vec[i] = v * scale
	}
	return embed.Record{File: file, Speaker: speaker, Start: 0, End: 2, Vector: vec}
}

var (
	voiceA = []float32{1, 0, 0, 0.1}
	voiceB = []float32{0, 1, 0, 0.1}
	voiceC = []float32{0, 0, 1, 0.1}
)

func TestResolveClusterCount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		total          int
		uniqueSpeakers int
		want           int
	}{
		{"ten embeddings three speakers", 10, 3, 4},
		{"growth rounds down", 10, 2, 2},
		{"floor of two", 20, 1, 2},
		{"capped by half the population", 6, 10, 3},
		{"large corpus", 100, 10, 12},
		{"tiny population", 4, 2, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := cluster.ResolveClusterCount(tt.total, tt.uniqueSpeakers)
			if got != tt.want {
				t.Errorf("ResolveClusterCount(%d, %d) = %d, want %d",
					tt.total, tt.uniqueSpeakers, got, tt.want)
			}
		})
	}
}

func TestClusterRejectsInsufficientData(t *testing.T) {
	t.Parallel()

	for _, n := range []int{0, 1} {
		records := make([]embed.Record, n)
		for i := range records {
			records[i] = rec("ep1", "A", voiceA, 1)
		}
		_, err := cluster.Cluster(records, 2)
		if !errors.Is(err, cluster.ErrInsufficientData) {
			t.Errorf("Cluster(%d records) error = %v, want ErrInsufficientData", n, err)
		}
	}
}

func TestClusterGroupsSameVoiceAcrossFiles(t *testing.T) {
	t.Parallel()

	records := []embed.Record{
		rec("ep1", "SPEAKER_1", voiceA, 1),
		rec("ep1", "SPEAKER_2", voiceB, 1),
		rec("ep2", "SPEAKER_1", voiceB, 2.5),
		rec("ep2", "SPEAKER_2", voiceA, 0.5),
	}

	res, err := cluster.Cluster(records, 2)
	if err != nil {
		t.Fatalf("Cluster() error = %v", err)
	}
	if res.K != 2 {
		t.Fatalf("K = %d, want 2", res.K)
	}
	if res.Labels[0] != res.Labels[3] {
		t.Errorf("same voice split: %s vs %s", res.Labels[0], res.Labels[3])
	}
	if res.Labels[1] != res.Labels[2] {
		t.Errorf("same voice split: %s vs %s", res.Labels[1], res.Labels[2])
	}
	if res.Labels[0] == res.Labels[1] {
		t.Errorf("distinct voices merged into %s", res.Labels[0])
	}
}

func TestClusterLabelsByFirstAppearance(t *testing.T) {
	t.Parallel()

	records := []embed.Record{
		rec("ep1", "A", voiceA, 1),
		rec("ep1", "B", voiceB, 1),
		rec("ep1", "C", voiceC, 1),
		rec("ep2", "A", voiceA, 2),
	}

	res, err := cluster.Cluster(records, 3)
	if err != nil {
		t.Fatalf("Cluster() error = %v", err)
	}
	want := []string{"Speaker_1", "Speaker_2", "Speaker_3", "Speaker_1"}
	if !reflect.DeepEqual(res.Labels, want) {
		t.Errorf("Labels = %v, want %v", res.Labels, want)
	}
}

func TestClusterDeterministic(t *testing.T) {
	t.Parallel()

	var records []embed.Record
	for i := 0; i < 4; i++ {
		records = append(records,
			rec("ep1", fmt.Sprintf("S%d", i), voiceA, float32(i+1)),
			rec("ep2", fmt.Sprintf("S%d", i), voiceB, float32(i+1)),
		)
	}

	first, err := cluster.Cluster(records, 0)
	if err != nil {
		t.Fatalf("Cluster() error = %v", err)
	}
	for run := 0; run < 3; run++ {
		again, err := cluster.Cluster(records, 0)
		if err != nil {
			t.Fatalf("Cluster() error = %v", err)
		}
		if !reflect.DeepEqual(first.Labels, again.Labels) {
			t.Fatalf("run %d labels differ: %v vs %v", run, again.Labels, first.Labels)
		}
	}
}

func TestClusterCountsLabelsOnceAcrossFiles(t *testing.T) {
	t.Parallel()

	// 10 embeddings spread over 5 files, but only 3 distinct diarization
	// labels. The derived count depends on the labels, not the files:
	// clamp(round(1.2*3), 2, 5) = 4.
	var records []embed.Record
	voices := [][]float32{voiceA, voiceB, voiceC}
	for i := 0; i < 10; i++ {
		file := fmt.Sprintf("ep%d", i%5+1)
		speaker := fmt.Sprintf("SPEAKER_%d", i%3+1)
		records = append(records, rec(file, speaker, voices[i%3], float32(1+i)))
	}

	res, err := cluster.Cluster(records, 0)
	if err != nil {
		t.Fatalf("Cluster() error = %v", err)
	}
	if res.K != 4 {
		t.Errorf("derived K = %d, want 4", res.K)
	}
}

func TestClusterDerivedCountStaysInBounds(t *testing.T) {
	t.Parallel()

	var records []embed.Record
	voices := [][]float32{voiceA, voiceB, voiceC}
	for i := 0; i < 12; i++ {
		records = append(records, rec("ep1", fmt.Sprintf("S%d", i%3), voices[i%3], float32(1+i)))
	}

	res, err := cluster.Cluster(records, 0)
	if err != nil {
		t.Fatalf("Cluster() error = %v", err)
	}
	if res.K < 2 || res.K > len(records)/2 {
		t.Errorf("derived K = %d, want within [2, %d]", res.K, len(records)/2)
	}

	distinct := make(map[string]struct{})
	for _, l := range res.Labels {
		distinct[l] = struct{}{}
	}
	if len(distinct) != res.K {
		t.Errorf("distinct labels = %d, want K = %d", len(distinct), res.K)
	}
}
