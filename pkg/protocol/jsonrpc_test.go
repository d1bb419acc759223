package protocol

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cgast/atwork/pkg/taskspec"
)

func TestRequestMarshal(t *testing.T) {
	req := Request{
		JSONRPC: "2.0",
		ID:      1,
		Method:  MethodTaskParse,
		Params:  json.RawMessage(`{"spec":"PPT<S6,S5>"}`),
	}
	data, err := json.Marshal(req)
	require.NoError(t, err)

	var decoded Request
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "task.parse", decoded.Method)
	assert.JSONEq(t, `{"spec":"PPT<S6,S5>"}`, string(decoded.Params))
}

func TestResponseSuccess(t *testing.T) {
	resp := NewResponse(1, "ok")
	assert.Equal(t, "2.0", resp.JSONRPC)
	assert.Nil(t, resp.Error)
	assert.Equal(t, "ok", resp.Result)
}

func TestResponseError(t *testing.T) {
	resp := NewErrorResponse(1, CodeNotFound, "missing", nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeNotFound, resp.Error.Code)
	assert.Equal(t, "missing", resp.Error.Error())
	assert.Nil(t, resp.Result)
}

func TestSpecError(t *testing.T) {
	_, err := taskspec.Parse(taskspec.PrecisionPlacementTest, "BNT<(D,W,3)>")
	require.Error(t, err)

	rpcErr := SpecError(err)
	assert.Equal(t, CodeSpecInvalid, rpcErr.Code)
	pe, ok := rpcErr.Data.(*taskspec.ParseError)
	require.True(t, ok)
	assert.Equal(t, taskspec.PrefixMismatch, pe.Kind)

	data, mErr := json.Marshal(NewErrorResponse(7, rpcErr.Code, rpcErr.Message, rpcErr.Data))
	require.NoError(t, mErr)
	assert.Contains(t, string(data), `"kind":"prefix mismatch"`)
}

func TestSpecErrorOther(t *testing.T) {
	rpcErr := SpecError(errors.New("disk full"))
	assert.Equal(t, CodeInternalError, rpcErr.Code)
	assert.Equal(t, "disk full", rpcErr.Message)
	assert.Nil(t, rpcErr.Data)
}

func TestMethodConstants(t *testing.T) {
	methods := []string{
		MethodTaskParse, MethodTaskReparse, MethodTaskClassify, MethodTaskPlan,
		MethodTaskFetch, MethodUserdataGet, MethodFixturesList, MethodHistory,
	}
	seen := make(map[string]bool)
	for _, m := range methods {
		assert.NotEmpty(t, m)
		assert.False(t, seen[m], "duplicate method %s", m)
		seen[m] = true
	}
}
