package quest

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"rpgchat/models"
)

func TestSummarize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"first sentence", "The gate groans open. Beyond it, torchlight flickers.", "The gate groans open."},
		{"stage directions stripped", "[leans closer] *whispers* The key is under the stone! Go now.", "The key is under the stone!"},
		{"no terminator", "  a quiet   road  ", "a quiet road"},
		{"empty", "", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Summarize(tc.in))
		})
	}
}

func TestSummarizeTruncates(t *testing.T) {
	long := strings.Repeat("ä", 300)
	got := Summarize(long)
	assert.Equal(t, SummaryLimit, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestClassifyDanger(t *testing.T) {
	tests := []struct {
		text string
		want models.Danger
	}{
		{"A dragon swoops down from the ridge!", models.DangerHigh},
		{"Goblins watch from the trees, and one of them draws blood.", models.DangerHigh},
		{"You hear wolves howling in the distance.", models.DangerMedium},
		{"The innkeeper smiles and pours you an ale.", models.DangerLow},
		{"Shadowy figures", models.DangerLow},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, ClassifyDanger(tc.text), tc.text)
	}
}

func TestDetectLocation(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"named place with article", "You arrive at the Silver Stag Inn as night falls.", "Silver Stag Inn"},
		{"named place with of", "The path leads into the Halls of Stone.", "Halls of Stone"},
		{"named place without article", "Rain follows you to Riverwood.", "Riverwood"},
		{"generic place", "The old tower leans over a dark forest.", "tower"},
		{"nothing", "You wait. Nothing happens.", UnknownLocation},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DetectLocation(tc.text))
		})
	}
}
