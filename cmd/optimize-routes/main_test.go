package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"canvassplan/internal/opt"
)

func TestRun(t *testing.T) {
	// four stops on a line, listed out of order
	in := `{"clusters":[
		{"clusterId":0,"distanceMatrix":[[0,200,100,300],[200,0,100,100],[100,100,0,200],[300,100,200,0]],"voterIds":["a","c","b","d"]},
		{"clusterId":"north","distanceMatrix":[[0,50],[50,0]]},
		{"clusterId":2,"distanceMatrix":[[0]],"voterIds":["solo"]},
		{"clusterId":3,"distanceMatrix":[]}
	]}`
	var out bytes.Buffer
	require.NoError(t, run(strings.NewReader(in), &out, opt.DefaultTuning()))

	var got output
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, solverName, got.Solver)
	require.Len(t, got.Routes, 4)

	r := got.Routes[0]
	assert.JSONEq(t, `0`, string(r.ClusterID))
	assert.Equal(t, 300, r.TotalDistance)
	ids := strings.Join(r.OrderedIDs, "")
	assert.True(t, ids == "abcd" || ids == "dcba", ids)

	assert.JSONEq(t, `"north"`, string(got.Routes[1].ClusterID))
	assert.Equal(t, []int{0, 1}, got.Routes[1].OrderedIndices)
	assert.Equal(t, 50, got.Routes[1].TotalDistance)

	assert.Equal(t, []int{0}, got.Routes[2].OrderedIndices)
	assert.Equal(t, []string{"solo"}, got.Routes[2].OrderedIDs)
	assert.Empty(t, got.Routes[3].OrderedIndices)
}

func TestRun_Errors(t *testing.T) {
	cases := map[string]string{
		"json":     `{"clusters":`,
		"ragged":   `{"clusters":[{"clusterId":0,"distanceMatrix":[[0,1],[1]]}]}`,
		"negative": `{"clusters":[{"clusterId":0,"distanceMatrix":[[0,-1],[-1,0]]}]}`,
		"ids":      `{"clusters":[{"clusterId":0,"distanceMatrix":[[0,1],[1,0]],"voterIds":["a"]}]}`,
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			var out bytes.Buffer
			assert.Error(t, run(strings.NewReader(in), &out, opt.DefaultTuning()))
		})
	}
}

func TestRun_InvalidClusterWritesNothing(t *testing.T) {
	// a valid cluster ahead of the bad one must not be solved or written
	in := `{"clusters":[
		{"clusterId":0,"distanceMatrix":[[0,1,2],[1,0,1],[2,1,0]]},
		{"clusterId":1,"distanceMatrix":[[0,1],[1,0]],"voterIds":["a","b","c"]}
	]}`
	var out bytes.Buffer
	err := run(strings.NewReader(in), &out, opt.DefaultTuning())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cluster 1")
	assert.Zero(t, out.Len())
}
