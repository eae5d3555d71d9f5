package common

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
algorithm_name: block-partition-coloring
algorithm_type: exact
server_address: 127.0.0.1:9090
log_level: debug
worker_config:
  num_workers: 2
  worker_id: worker-1
graph_config:
  edges:
    - {u: 0, v: 1}
    - {u: 1, v: 2}
parameters:
  num_rounds: 2
  epsilon: 0.5
  result_file: out.txt
`

func TestLoadConfig(t *testing.T) {
	path := writeFile(t, "config.yaml", sampleConfig)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "block-partition-coloring", cfg.AlgorithmName)
	assert.Equal(t, AlgorithmTypeExact, cfg.AlgorithmType)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Len(t, cfg.GraphConfig.Edges, 2)

	idx, err := cfg.WorkerIndex()
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	params, err := cfg.AlgorithmParams()
	require.NoError(t, err)
	assert.Equal(t, "worker-1", params["worker_id"])
	assert.Equal(t, 2, params["num_workers"])
	assert.Equal(t, 1, params["worker_index"])

	rounds, err := IntParam(params, "num_rounds", 0)
	require.NoError(t, err)
	assert.Equal(t, 2, rounds)
	eps, err := FloatParam(params, "epsilon", 1)
	require.NoError(t, err)
	assert.Equal(t, 0.5, eps)
	out, err := StringParam(params, "result_file", "")
	require.NoError(t, err)
	assert.Equal(t, "out.txt", out)
}

func TestSaveConfigRoundTrip(t *testing.T) {
	cfg, err := LoadConfig(writeFile(t, "config.yaml", sampleConfig))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "saved.yaml")
	require.NoError(t, SaveConfig(cfg, path))

	again, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.WorkerConfig, again.WorkerConfig)
	assert.Equal(t, cfg.GraphConfig.Edges, again.GraphConfig.Edges)
}

func TestAlgorithmConfig_Validate(t *testing.T) {
	valid := func() *AlgorithmConfig {
		return &AlgorithmConfig{
			AlgorithmName: "first-fit-coloring",
			AlgorithmType: AlgorithmTypeExact,
			ServerAddress: "localhost:9090",
			WorkerConfig:  WorkerConfig{NumWorkers: 2, WorkerID: "worker-0"},
			GraphConfig:   GraphInputConfig{NumVertices: 3},
		}
	}
	require.NoError(t, valid().Validate())

	cases := map[string]func(c *AlgorithmConfig){
		"missing name":        func(c *AlgorithmConfig) { c.AlgorithmName = "" },
		"bad type":            func(c *AlgorithmConfig) { c.AlgorithmType = "approx" },
		"missing server":      func(c *AlgorithmConfig) { c.ServerAddress = "" },
		"zero workers":        func(c *AlgorithmConfig) { c.WorkerConfig.NumWorkers = 0 },
		"missing worker id":   func(c *AlgorithmConfig) { c.WorkerConfig.WorkerID = "" },
		"malformed worker id": func(c *AlgorithmConfig) { c.WorkerConfig.WorkerID = "w1" },
		"worker out of range": func(c *AlgorithmConfig) { c.WorkerConfig.WorkerID = "worker-2" },
		"directed":            func(c *AlgorithmConfig) { c.GraphConfig.Directed = true },
		"no graph":            func(c *AlgorithmConfig) { c.GraphConfig = GraphInputConfig{} },
		"bad format": func(c *AlgorithmConfig) {
			c.GraphConfig = GraphInputConfig{Format: "json", FilePath: "g.json"}
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := valid()
			mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestParams_TypeErrors(t *testing.T) {
	params := map[string]interface{}{"n": "three", "f": 1.5, "s": 4}

	_, err := IntParam(params, "n", 0)
	assert.Error(t, err)
	_, err = IntParam(params, "f", 0)
	assert.Error(t, err)
	_, err = FloatParam(params, "n", 0)
	assert.Error(t, err)
	_, err = StringParam(params, "s", "")
	assert.Error(t, err)

	v, err := IntParam(params, "missing", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}
