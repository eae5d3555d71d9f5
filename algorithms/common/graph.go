package common

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mundrapranay/silhouette-coloring/algorithms/coloring"
)

// LoadGraphData loads graph data from the configuration: a file in one of
// the supported formats, inline edges, or an edgeless graph of num_vertices.
// When num_vertices is set it must cover every vertex index seen.
func LoadGraphData(config *GraphInputConfig) (*GraphData, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		graphData *GraphData
		err       error
	)
	switch {
	case config.FilePath != "":
		switch strings.ToLower(config.Format) {
		case "edgelist", "edge_list":
			graphData, err = loadEdgeListFromFile(config.FilePath)
		case "matrix", "mtx":
			graphData, err = loadMatrixFromFile(config.FilePath)
		default:
			err = fmt.Errorf("unsupported graph format: %s", config.Format)
		}
	case len(config.Edges) > 0:
		graphData, err = loadInlineEdges(config.Edges)
	default:
		graphData = newGraphData()
	}
	if err != nil {
		return nil, err
	}

	if config.NumVertices > 0 {
		if config.NumVertices < graphData.NumVertices {
			return nil, fmt.Errorf("num_vertices %d is smaller than the largest vertex index %d",
				config.NumVertices, graphData.NumVertices-1)
		}
		graphData.NumVertices = config.NumVertices
	}
	return graphData, nil
}

// BuildGraph turns loaded edges into an immutable undirected graph.
func BuildGraph(data *GraphData) (*coloring.Graph, error) {
	pairs := make([][2]int, len(data.Edges))
	for i, e := range data.Edges {
		pairs[i] = [2]int{e.U, e.V}
	}
	g, err := coloring.NewGraphFromEdges(data.NumVertices, pairs)
	if err != nil {
		return nil, fmt.Errorf("failed to build graph: %w", err)
	}
	return g, nil
}

// LoadGraph is LoadGraphData followed by BuildGraph.
func LoadGraph(config *GraphInputConfig) (*coloring.Graph, error) {
	data, err := LoadGraphData(config)
	if err != nil {
		return nil, err
	}
	return BuildGraph(data)
}

func newGraphData() *GraphData {
	return &GraphData{Edges: []Edge{}}
}

// addEdge records a 0-based edge, dropping self-loops, and grows the vertex
// count to cover both endpoints.
func (g *GraphData) addEdge(u, v int) error {
	if u < 0 || v < 0 {
		return fmt.Errorf("negative vertex ID in edge (%d, %d)", u, v)
	}
	if u == v {
		g.SelfLoops++
		return nil
	}
	g.Edges = append(g.Edges, Edge{U: u, V: v})
	g.NumEdges = len(g.Edges)
	if u >= g.NumVertices {
		g.NumVertices = u + 1
	}
	if v >= g.NumVertices {
		g.NumVertices = v + 1
	}
	return nil
}

func loadInlineEdges(edges []ConfigEdge) (*GraphData, error) {
	graphData := newGraphData()
	for _, e := range edges {
		if err := graphData.addEdge(e.U, e.V); err != nil {
			return nil, err
		}
	}
	return graphData, nil
}

// loadEdgeListFromFile loads a 0-based "u v [weight]" edge list. Fields may
// be separated by any run of spaces or tabs; lines starting with # are
// comments.
func loadEdgeListFromFile(filePath string) (*GraphData, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open graph file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.Comma = ' '
	reader.Comment = '#'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	graphData := newGraphData()
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read graph file: %w", err)
		}

		fields := strings.Fields(strings.Join(record, " "))
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 2 {
			line, _ := reader.FieldPos(0)
			return nil, fmt.Errorf("line %d: invalid edge format: need at least 2 values (u v), got: %v", line, fields)
		}

		u, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("invalid vertex ID: %s", fields[0])
		}
		v, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("invalid vertex ID: %s", fields[1])
		}

		// A third weight column is accepted and ignored.
		if err := graphData.addEdge(u, v); err != nil {
			return nil, err
		}
	}

	return graphData, nil
}

// loadMatrixFromFile loads a sparse matrix given as 1-based "i j [value]"
// coordinate triples, the layout of the Harwell-Boeing bus matrices. Lines
// starting with % or # are comments. When the file opens with a
// %%MatrixMarket banner, the first data line is the "rows cols nnz" size
// line. Diagonal entries are dropped.
func loadMatrixFromFile(filePath string) (*GraphData, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open graph file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	graphData := newGraphData()
	lineNo := 0
	matrixMarket := false
	sizeSeen := false
	declared := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if lineNo == 1 && strings.HasPrefix(line, "%%MatrixMarket") {
			matrixMarket = true
			continue
		}
		if line == "" || line[0] == '%' || line[0] == '#' {
			continue
		}

		fields := strings.Fields(line)
		if matrixMarket && !sizeSeen {
			sizeSeen = true
			if len(fields) < 2 {
				return nil, fmt.Errorf("line %d: invalid size line: %q", lineNo, line)
			}
			rows, errR := strconv.Atoi(fields[0])
			cols, errC := strconv.Atoi(fields[1])
			if errR != nil || errC != nil {
				return nil, fmt.Errorf("line %d: invalid size line: %q", lineNo, line)
			}
			declared = max(rows, cols)
			continue
		}

		if len(fields) < 2 {
			return nil, fmt.Errorf("line %d: invalid entry: need at least 2 values (i j), got: %v", lineNo, fields)
		}
		i, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid row index: %s", lineNo, fields[0])
		}
		j, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid column index: %s", lineNo, fields[1])
		}
		if i < 1 || j < 1 {
			return nil, fmt.Errorf("line %d: matrix indices are 1-based, got (%d, %d)", lineNo, i, j)
		}

		// Entry values only mark adjacency.
		if err := graphData.addEdge(i-1, j-1); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read graph file: %w", err)
	}

	if declared > graphData.NumVertices {
		graphData.NumVertices = declared
	}
	return graphData, nil
}

// extractWorkerIndex extracts the worker index from a worker ID string.
// Supports formats: "worker-0", "worker-1", etc.
// Returns the numeric index (0-based).
func extractWorkerIndex(workerID string) (int, error) {
	var index int
	n, err := fmt.Sscanf(workerID, "worker-%d", &index)
	if err != nil || n != 1 {
		return 0, fmt.Errorf("failed to extract worker index from %s (expected format: worker-N)", workerID)
	}
	if index < 0 {
		return 0, fmt.Errorf("worker index must be non-negative, got: %d", index)
	}
	return index, nil
}

// WorkerID formats the ID of worker index i.
func WorkerID(i int) string {
	return fmt.Sprintf("worker-%d", i)
}
