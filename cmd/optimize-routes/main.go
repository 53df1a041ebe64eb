// Command optimize-routes orders batches of stops from precomputed distance
// matrices. It reads a JSON document of clusters on stdin and writes the
// visiting order of each cluster to stdout.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"os"

	"golang.org/x/sync/errgroup"

	"canvassplan/internal/config"
	"canvassplan/internal/geo"
	"canvassplan/internal/opt"
)

const solverName = "two_opt"

type input struct {
	Clusters []cluster `json:"clusters"`
}

type cluster struct {
	ClusterID      json.RawMessage `json:"clusterId"`
	DistanceMatrix [][]float64     `json:"distanceMatrix"`
	VoterIDs       []string        `json:"voterIds,omitempty"`
}

type route struct {
	ClusterID      json.RawMessage `json:"clusterId"`
	OrderedIndices []int           `json:"orderedIndices"`
	OrderedIDs     []string        `json:"orderedIds,omitempty"`
	TotalDistance  int             `json:"totalDistance"`
}

type output struct {
	Routes []route `json:"routes"`
	Solver string  `json:"solver"`
}

func main() {
	tuningPath := flag.String("config", os.Getenv("OPTIMIZER_CONFIG"), "YAML optimizer tuning file")
	flag.Parse()

	tuning := opt.DefaultTuning()
	if *tuningPath != "" {
		t, err := config.LoadTuning(*tuningPath)
		if err != nil {
			log.Fatalf("optimize-routes: %v", err)
		}
		tuning = t
	}
	if err := run(os.Stdin, os.Stdout, tuning); err != nil {
		log.Fatalf("optimize-routes: %v", err)
	}
}

func run(in io.Reader, out io.Writer, tuning opt.Tuning) error {
	var req input
	if err := json.NewDecoder(in).Decode(&req); err != nil {
		return fmt.Errorf("decode input: %w", err)
	}
	matrices := make([]geo.Matrix, len(req.Clusters))
	for i, c := range req.Clusters {
		m, err := toMatrix(c.DistanceMatrix)
		if err != nil {
			return fmt.Errorf("cluster %d: %w", i, err)
		}
		if len(c.VoterIDs) > 0 && len(c.VoterIDs) != m.Len() {
			return fmt.Errorf("cluster %d: %d voterIds for %d points", i, len(c.VoterIDs), m.Len())
		}
		matrices[i] = m
	}

	routes := make([]route, len(req.Clusters))
	o := opt.New(tuning)
	var g errgroup.Group
	for i, c := range req.Clusters {
		m := matrices[i]
		g.Go(func() error {
			res := o.OptimizeMatrix(m)
			r := route{
				ClusterID:      c.ClusterID,
				OrderedIndices: []int(res.Order),
				TotalDistance:  m.PathLength(res.Order),
			}
			if len(c.VoterIDs) > 0 {
				r.OrderedIDs = make([]string, len(res.Order))
				for pos, idx := range res.Order {
					r.OrderedIDs[pos] = c.VoterIDs[idx]
				}
			}
			routes[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return json.NewEncoder(out).Encode(output{Routes: routes, Solver: solverName})
}

// toMatrix rounds a caller-supplied matrix to integer meters. It must be
// square with non-negative entries.
func toMatrix(rows [][]float64) (geo.Matrix, error) {
	m := make(geo.Matrix, len(rows))
	for i, row := range rows {
		m[i] = make([]int, len(row))
		for j, v := range row {
			if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("distanceMatrix[%d][%d] = %v", i, j, v)
			}
			m[i][j] = int(math.Round(v))
		}
	}
	if !m.Square() {
		return nil, fmt.Errorf("distanceMatrix is not square")
	}
	return m, nil
}
