package rest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/molsearch/molsearch/application/search"
	"github.com/molsearch/molsearch/application/tasks"
	"github.com/molsearch/molsearch/infrastructure/cache"
	"github.com/molsearch/molsearch/infrastructure/config"
	"github.com/molsearch/molsearch/infrastructure/persistence/sqlite"
	"github.com/molsearch/molsearch/pkg/observability"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	logger := zap.NewNop()
	metrics := observability.NewCollector("test")

	store, err := sqlite.NewRepository(":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	memory := cache.NewMemory()
	t.Cleanup(func() { _ = memory.Close() })

	searcher := search.NewService(store, memory, metrics, logger, time.Minute, time.Minute)
	taskService := tasks.NewService(searcher, metrics, logger, "http://localhost:8080", 2, 16)
	t.Cleanup(func() { _ = taskService.Close() })

	cfg := &config.Config{
		ServerID:      "test-1",
		Environment:   "development",
		EnableMetrics: true,
	}

	router := NewRouter(cfg, store, searcher, taskService, metrics, logger)
	srv := httptest.NewServer(router.Setup())
	t.Cleanup(srv.Close)
	return srv
}

func decodeBody(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func errorDetail(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body struct {
		Detail string `json:"detail"`
	}
	decodeBody(t, resp, &body)
	return body.Detail
}

type moleculeBody struct {
	Identifier int64  `json:"identifier"`
	Smiles     string `json:"smiles"`
}

func createMolecule(t *testing.T, srv *httptest.Server, smiles string) moleculeBody {
	t.Helper()
	resp, err := http.Post(srv.URL+"/smiles/?smiles="+smiles, "", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var m moleculeBody
	decodeBody(t, resp, &m)
	return m
}

func TestServerInfo(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	decodeBody(t, resp, &body)
	assert.Equal(t, "test-1", body["server_id"])
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCreateAndGetMolecule(t *testing.T) {
	srv := newTestServer(t)

	created := createMolecule(t, srv, "CCO")
	assert.Equal(t, "CCO", created.Smiles)
	assert.Positive(t, created.Identifier)

	resp, err := http.Get(fmt.Sprintf("%s/smiles/%d", srv.URL, created.Identifier))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got moleculeBody
	decodeBody(t, resp, &got)
	assert.Equal(t, created, got)
}

func TestCreateMoleculeInvalidSmiles(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/smiles/?smiles=not-SMILES", "", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "SMILES Parse Error: syntax error for input 'not-SMILES'.", errorDetail(t, resp))
}

func TestCreateMoleculeMissingParam(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/smiles/", "", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateMoleculeDuplicate(t *testing.T) {
	srv := newTestServer(t)
	createMolecule(t, srv, "CCO")

	resp, err := http.Post(srv.URL+"/smiles/?smiles=CCO", "", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "Molecule with this SMILES value already exists", errorDetail(t, resp))
}

func TestGetMoleculeNotFound(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/smiles/42")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "The molecule with identifier 42 is not found.", errorDetail(t, resp))
}

func TestListMolecules(t *testing.T) {
	srv := newTestServer(t)
	createMolecule(t, srv, "CCO")
	createMolecule(t, srv, "c1ccccc1")

	resp, err := http.Get(srv.URL + "/smiles/")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list []moleculeBody
	decodeBody(t, resp, &list)
	require.Len(t, list, 2)
	assert.Equal(t, "CCO", list[0].Smiles)
	assert.Equal(t, "c1ccccc1", list[1].Smiles)

	resp, err = http.Get(srv.URL + "/smiles/?limit=1&offset=1")
	require.NoError(t, err)
	decodeBody(t, resp, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "c1ccccc1", list[0].Smiles)
}

func doPut(t *testing.T, srv *httptest.Server, path string, body interface{}) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPut, srv.URL+path, bytes.NewReader(raw))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func TestUpdateMolecule(t *testing.T) {
	srv := newTestServer(t)
	created := createMolecule(t, srv, "CCO")

	resp := doPut(t, srv, fmt.Sprintf("/smiles/%d", created.Identifier),
		moleculeBody{Identifier: created.Identifier, Smiles: "CCN"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var updated moleculeBody
	decodeBody(t, resp, &updated)
	assert.Equal(t, "CCN", updated.Smiles)
}

func TestUpdateMoleculeIdentifierMismatch(t *testing.T) {
	srv := newTestServer(t)
	created := createMolecule(t, srv, "CCO")

	resp := doPut(t, srv, fmt.Sprintf("/smiles/%d", created.Identifier),
		moleculeBody{Identifier: created.Identifier + 1, Smiles: "CCN"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, errorDetail(t, resp), "do not match")
}

func TestUpdateMoleculeUpsertsMissingID(t *testing.T) {
	srv := newTestServer(t)

	resp := doPut(t, srv, "/smiles/99", moleculeBody{Identifier: 99, Smiles: "CCO"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var m moleculeBody
	decodeBody(t, resp, &m)
	assert.Equal(t, int64(99), m.Identifier)
	assert.Equal(t, "CCO", m.Smiles)
}

func TestDeleteMolecule(t *testing.T) {
	srv := newTestServer(t)
	created := createMolecule(t, srv, "CCO")

	req, err := http.NewRequest(http.MethodDelete,
		fmt.Sprintf("%s/smiles/%d", srv.URL, created.Identifier), nil)
	require.NoError(t, err)

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var removed moleculeBody
	decodeBody(t, resp, &removed)
	assert.Equal(t, created, removed)

	resp, err = http.Get(fmt.Sprintf("%s/smiles/%d", srv.URL, created.Identifier))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSearchEmptyPool(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/search/CCO")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "The molecules for substructure search aren't provided", errorDetail(t, resp))
}

type searchBody struct {
	Source string `json:"source"`
	Data   struct {
		Query  string   `json:"query"`
		Result []string `json:"result"`
	} `json:"data"`
}

func TestSearchSources(t *testing.T) {
	srv := newTestServer(t)
	createMolecule(t, srv, "CCO")
	createMolecule(t, srv, "c1ccccc1")
	createMolecule(t, srv, "Cc1ccccc1")

	resp, err := http.Get(srv.URL + "/search/c1ccccc1")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var first searchBody
	decodeBody(t, resp, &first)
	assert.Equal(t, "database", first.Source)
	assert.Equal(t, []string{"c1ccccc1", "Cc1ccccc1"}, first.Data.Result)

	// the same query again comes back from the result cache
	resp, err = http.Get(srv.URL + "/search/c1ccccc1")
	require.NoError(t, err)

	var second searchBody
	decodeBody(t, resp, &second)
	assert.Equal(t, "cache", second.Source)
	assert.Equal(t, first.Data, second.Data)
}

func TestSearchTaskFlow(t *testing.T) {
	srv := newTestServer(t)
	createMolecule(t, srv, "CCO")
	createMolecule(t, srv, "CCCO")

	resp, err := http.Post(srv.URL+"/search/CCO", "", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var sub struct {
		TaskID string `json:"task_id"`
		Status string `json:"status"`
		Link   string `json:"link"`
	}
	decodeBody(t, resp, &sub)
	require.NotEmpty(t, sub.TaskID)
	assert.Equal(t, "PENDING", sub.Status)
	assert.Contains(t, sub.Link, "/tasks/"+sub.TaskID)

	var status struct {
		TaskID string      `json:"task_id"`
		Status string      `json:"status"`
		Result *searchBody `json:"result"`
	}
	require.Eventually(t, func() bool {
		resp, err := http.Get(srv.URL + "/tasks/" + sub.TaskID)
		if err != nil {
			return false
		}
		decodeBody(t, resp, &status)
		return status.Status == "SUCCESS"
	}, 2*time.Second, 10*time.Millisecond)

	require.NotNil(t, status.Result)
	assert.Equal(t, []string{"CCO", "CCCO"}, status.Result.Data.Result)
}

func TestSubmitTaskInvalidQuery(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/search/not-SMILES", "", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, errorDetail(t, resp), "SMILES Parse Error")
}

func TestTaskUnknownIDIsPending(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/tasks/no-such-task")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status struct {
		Status string `json:"status"`
	}
	decodeBody(t, resp, &status)
	assert.Equal(t, "PENDING", status.Status)
}

func TestUploadDefaultSeed(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/molecules/", "", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var inserted []moleculeBody
	decodeBody(t, resp, &inserted)
	assert.Len(t, inserted, 6)
}

func TestUploadFile(t *testing.T) {
	srv := newTestServer(t)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreatePart(map[string][]string{
		"Content-Disposition": {`form-data; name="file"; filename="molecules.txt"`},
		"Content-Type":        {"text/plain"},
	})
	require.NoError(t, err)
	// duplicates and unparsable lines are dropped, not errors
	_, err = io.WriteString(part, "CCO\nc1ccccc1\nCCO\nnot a molecule\n\nCCN\n")
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	resp, err := http.Post(srv.URL+"/molecules/", writer.FormDataContentType(), &buf)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var inserted []moleculeBody
	decodeBody(t, resp, &inserted)
	assert.Len(t, inserted, 3)
}

func TestUploadRejectsNonTextFile(t *testing.T) {
	srv := newTestServer(t)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreatePart(map[string][]string{
		"Content-Disposition": {`form-data; name="file"; filename="molecules.bin"`},
		"Content-Type":        {"application/octet-stream"},
	})
	require.NoError(t, err)
	_, err = io.WriteString(part, "CCO\n")
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	resp, err := http.Post(srv.URL+"/molecules/", writer.FormDataContentType(), &buf)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Upload a text file with molecules as SMILES strings.", errorDetail(t, resp))
}
