package annotation

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTable = `guid,key_iou,value_iou,pair_iou,agg_iou
abc123.5,0.9,0.8,0.85,0.72
abc123.10,1.0,1.0,1.0,1.0
zzz999.3,0.1,0.2,0.3,0.006
abc123.2,0.5,0.5,0.5,0.125
abc123.1,0.25,0.5,0.75,0.09375
def456.7,0.0,0.0,0.0,0.0
`

// newTestStore lays out a results table, two annotators and an image
// directory under a temp dir.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	root := t.TempDir()
	layout := Layout{
		DataDir:    filepath.Join(root, "data"),
		ResultsDir: filepath.Join(root, "results"),
		ImageDir:   filepath.Join(root, "images"),
	}

	writeFile(t, filepath.Join(layout.ResultsDir, SkipPolicySkips, "product-results.csv"), testTable)
	writeFile(t, filepath.Join(layout.DataDir, "20007", "abc123.5.json"), `{"_image_id":"x","roleA":"val"}`)
	writeFile(t, filepath.Join(layout.DataDir, "20008", "abc123.5.json"), `{"roleA":"other","count":3}`)

	return New(layout)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestNew_DefaultsAdjudicatedDir(t *testing.T) {
	s := New(Layout{DataDir: "data"})
	assert.Equal(t, filepath.Join("data", "adjudicated"), s.Layout().AdjudicatedDir)

	s = New(Layout{DataDir: "data", AdjudicatedDir: "elsewhere"})
	assert.Equal(t, "elsewhere", s.Layout().AdjudicatedDir)
}

func TestSplitInstanceID(t *testing.T) {
	tests := []struct {
		id        string
		wantGUID  string
		wantFrame string
		wantErr   bool
	}{
		{id: "abc123.5", wantGUID: "abc123", wantFrame: "5"},
		{id: "a.b.12", wantGUID: "a.b", wantFrame: "12"},
		{id: "nodot", wantErr: true},
		{id: ".5", wantErr: true},
		{id: "abc.", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			guid, frame, err := SplitInstanceID(tt.id)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantGUID, guid)
			assert.Equal(t, tt.wantFrame, frame)
		})
	}
}

func TestListGUIDs(t *testing.T) {
	s := newTestStore(t)

	got, err := s.ListGUIDs(AggregationProduct, SkipPolicySkips)
	require.NoError(t, err)

	if diff := cmp.Diff([]string{"abc123", "def456", "zzz999"}, got); diff != "" {
		t.Errorf("ListGUIDs() mismatch (-want +got):\n%s", diff)
	}
}

func TestListGUIDs_MissingTable(t *testing.T) {
	s := newTestStore(t)

	_, err := s.ListGUIDs(AggregationAverage, SkipPolicySkips)
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestListGUIDs_UnknownAggregation(t *testing.T) {
	s := newTestStore(t)

	_, err := s.ListGUIDs("median", SkipPolicySkips)
	assert.ErrorIs(t, err, ErrUnknownAggregation)
}

func TestListFrames_NumericOrder(t *testing.T) {
	s := newTestStore(t)

	got, err := s.ListFrames("abc123", AggregationProduct, SkipPolicySkips)
	require.NoError(t, err)

	if diff := cmp.Diff([]string{"1", "2", "5", "10"}, got); diff != "" {
		t.Errorf("ListFrames() mismatch (-want +got):\n%s", diff)
	}
}

func TestListFrames_UnknownGUID(t *testing.T) {
	s := newTestStore(t)

	got, err := s.ListFrames("nope", AggregationProduct, SkipPolicySkips)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestListFrames_NonIntegerFrame(t *testing.T) {
	s := newTestStore(t)
	writeFile(t, s.TablePath(AggregationAverage, SkipPolicySkips), "guid,k,v,p,a\nabc.x,1,1,1,1\n")

	_, err := s.ListFrames("abc", AggregationAverage, SkipPolicySkips)

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 2, perr.Line)
}

func TestGetMetrics(t *testing.T) {
	s := newTestStore(t)

	row, err := s.GetMetrics("abc123", "5", AggregationProduct, SkipPolicySkips)
	require.NoError(t, err)

	assert.Equal(t, "abc123.5", row.ID)
	assert.Equal(t, 0.9, row.KeyIOU)
	assert.Equal(t, 0.8, row.ValueIOU)
	assert.Equal(t, 0.85, row.PairIOU)
	assert.Equal(t, 0.72, row.AggIOU)
	assert.Equal(t, "Key IOU: 0.9\nValue IOU: 0.8\nPair IOU: 0.85\nAggregated IOU: 0.72\n", row.Text())
}

func TestGetMetrics_FirstRowWins(t *testing.T) {
	s := newTestStore(t)
	writeFile(t, s.TablePath(AggregationAverage, SkipPolicySkips),
		"guid,k,v,p,a\nabc.1,0.1,0.1,0.1,0.1\nabc.1,0.9,0.9,0.9,0.9\n")

	row, err := s.GetMetrics("abc", "1", AggregationAverage, SkipPolicySkips)
	require.NoError(t, err)
	assert.Equal(t, 0.1, row.KeyIOU)
}

func TestGetMetrics_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetMetrics("abc123", "999", AggregationProduct, SkipPolicySkips)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInstanceNotFound)

	var nf *InstanceNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "abc123.999", nf.ID)
	assert.Contains(t, err.Error(), "abc123.999")
}

func TestGetMetrics_MalformedRow(t *testing.T) {
	s := newTestStore(t)
	writeFile(t, s.TablePath(AggregationAverage, SkipPolicySkips),
		"guid,k,v,p,a\nabc.1,0.1,oops,0.1,0.1\nabc.2,0.5\n")

	_, err := s.GetMetrics("abc", "1", AggregationAverage, SkipPolicySkips)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 2, perr.Line)

	_, err = s.GetMetrics("abc", "2", AggregationAverage, SkipPolicySkips)
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 3, perr.Line)
}

func TestGetMetrics_NonFiniteValue(t *testing.T) {
	s := newTestStore(t)
	writeFile(t, s.TablePath(AggregationAverage, SkipPolicySkips),
		"guid,k,v,p,a\nabc.1,nan,0.8,0.85,nan\nabc.2,0.5,Inf,0.5,0.5\nabc.3,1,1,1,1\n")

	for _, frame := range []string{"1", "2"} {
		_, err := s.GetMetrics("abc", frame, AggregationAverage, SkipPolicySkips)
		var perr *ParseError
		require.ErrorAs(t, err, &perr, "frame %s", frame)
		assert.Contains(t, err.Error(), "not a finite number")
	}

	row, err := s.GetMetrics("abc", "3", AggregationAverage, SkipPolicySkips)
	require.NoError(t, err)
	assert.Equal(t, 1.0, row.AggIOU)
}

func TestGetAnnotation_StripsImageID(t *testing.T) {
	s := newTestStore(t)

	got, err := s.GetAnnotation("20007", "abc123", "5")
	require.NoError(t, err)

	if diff := cmp.Diff(map[string]any{"roleA": "val"}, got); diff != "" {
		t.Errorf("GetAnnotation() mismatch (-want +got):\n%s", diff)
	}
}

func TestGetAnnotation_KeepsNumbers(t *testing.T) {
	s := newTestStore(t)

	got, err := s.GetAnnotation("20008", "abc123", "5")
	require.NoError(t, err)
	assert.Equal(t, json.Number("3"), got["count"])
}

func TestGetAnnotation_Errors(t *testing.T) {
	s := newTestStore(t)
	writeFile(t, s.AnnotationPath("20007", "bad", "1"), `{"roleA":`)
	writeFile(t, s.AnnotationPath("20007", "list", "1"), `["a"]`)

	_, err := s.GetAnnotation("20007", "missing", "1")
	assert.ErrorIs(t, err, fs.ErrNotExist)

	var perr *ParseError
	_, err = s.GetAnnotation("20007", "bad", "1")
	assert.ErrorAs(t, err, &perr)

	_, err = s.GetAnnotation("20007", "list", "1")
	assert.ErrorAs(t, err, &perr)

	_, err = s.GetAnnotation("../20008", "abc123", "5")
	assert.ErrorIs(t, err, ErrInvalidIdentifier)
}

func TestImagePath(t *testing.T) {
	s := New(Layout{ImageDir: "images"})
	assert.Equal(t, filepath.Join("images", "abc123.5.png"), s.ImagePath("abc123", "5"))
}

func TestAdjudicate(t *testing.T) {
	s := newTestStore(t)

	ok, err := s.IsAdjudicated("abc123", "5")
	require.NoError(t, err)
	assert.False(t, ok, "missing adjudicated directory means not adjudicated")

	require.NoError(t, s.Adjudicate("20007", "abc123", "5"))

	ok, err = s.IsAdjudicated("abc123", "5")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.IsAdjudicated("abc123", "10")
	require.NoError(t, err)
	assert.False(t, ok)

	dst := filepath.Join(s.Layout().AdjudicatedDir, "20007,abc123.5.json")
	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	want, err := os.ReadFile(s.AnnotationPath("20007", "abc123", "5"))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestAdjudicate_Idempotent(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Adjudicate("20007", "abc123", "5"))
	require.NoError(t, s.Adjudicate("20007", "abc123", "5"))

	entries, err := os.ReadDir(s.Layout().AdjudicatedDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	got, err := os.ReadFile(filepath.Join(s.Layout().AdjudicatedDir, entries[0].Name()))
	require.NoError(t, err)
	assert.JSONEq(t, `{"_image_id":"x","roleA":"val"}`, string(got))
}

func TestAdjudicate_MissingSource(t *testing.T) {
	s := newTestStore(t)

	err := s.Adjudicate("20007", "abc123", "10")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestReplaceAndRestoreAnnotation(t *testing.T) {
	s := newTestStore(t)
	backup := filepath.Join(t.TempDir(), "backups", "r1.json")

	before, err := os.ReadFile(s.AnnotationPath("20008", "abc123", "5"))
	require.NoError(t, err)

	require.NoError(t, s.ReplaceAnnotation("20007", "20008", "abc123", "5", backup))

	got, err := s.GetAnnotation("20008", "abc123", "5")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"roleA": "val"}, got)

	saved, err := os.ReadFile(backup)
	require.NoError(t, err)
	assert.Equal(t, before, saved)

	require.NoError(t, s.RestoreAnnotation("20008", "abc123", "5", backup))
	after, err := os.ReadFile(s.AnnotationPath("20008", "abc123", "5"))
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestReplaceAnnotation_Rejects(t *testing.T) {
	s := newTestStore(t)
	backup := filepath.Join(t.TempDir(), "b.json")

	err := s.ReplaceAnnotation("20007", "20007", "abc123", "5", backup)
	assert.ErrorIs(t, err, ErrSameAnnotator)

	err = s.ReplaceAnnotation("20007", "20008", "abc123", "10", backup)
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	_, statErr := os.Stat(backup)
	assert.ErrorIs(t, statErr, fs.ErrNotExist, "no backup written on failure")
}

func TestDescribeAggregation(t *testing.T) {
	got, err := DescribeAggregation(AggregationAverage)
	require.NoError(t, err)
	assert.Equal(t, "total IOU = (keyIOU * valIOU * pairIOU) / 3", got)

	got, err = DescribeAggregation(AggregationProduct)
	require.NoError(t, err)
	assert.Equal(t, "total IOU = keyIOU * valIOU * pairIOU", got)

	_, err = DescribeAggregation("sum")
	assert.ErrorIs(t, err, ErrUnknownAggregation)
}
