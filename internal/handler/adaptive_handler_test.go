package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdaptive_FullSession(t *testing.T) {
	// Arrange
	r, _ := newTestRouter()

	// Act: старт
	w := doRequest(r, http.MethodPost, "/api/adaptive", map[string]interface{}{
		"modules": []string{"legislation"}, "limit": 2, "seed": 5,
	})

	// Assert
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), "answer_index")
	start := parseJSONResponse(t, w)
	id := start["session_id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, float64(1), start["number"])
	assert.Equal(t, "medium", start["level"])
	assert.NotContains(t, start, "last_correct")

	// Пропуск
	w = doRequest(r, http.MethodPost, "/api/adaptive/"+id+"/answer", map[string]interface{}{"selected": nil})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	step := parseJSONResponse(t, w)
	assert.Equal(t, false, step["last_correct"])
	assert.Contains(t, step, "last_answer_index")
	assert.Equal(t, "Пояснение", step["last_explanation"])
	rationales := step["last_rationales"].([]interface{})
	require.Len(t, rationales, 4)
	answerIndex := int(step["last_answer_index"].(float64))
	assert.Equal(t, "r-Нет", rationales[answerIndex], "Пояснения идут в порядке переставленных вариантов")
	assert.Equal(t, false, step["finished"])

	// Последний ответ завершает сессию
	w = doRequest(r, http.MethodPost, "/api/adaptive/"+id+"/answer", map[string]interface{}{"selected": 0})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	step = parseJSONResponse(t, w)
	assert.Equal(t, true, step["finished"])
	assert.NotContains(t, step, "item")
	result := step["result"].(map[string]interface{})
	assert.Equal(t, float64(2), result["total"])

	// Повторный ответ после завершения
	w = doRequest(r, http.MethodPost, "/api/adaptive/"+id+"/answer", map[string]interface{}{"selected": 0})
	assert.Equal(t, http.StatusGone, w.Code)
	gone := parseJSONResponse(t, w)
	assert.Contains(t, gone, "error")
	assert.Equal(t, true, gone["step"].(map[string]interface{})["finished"])
}

func TestAdaptive_Errors(t *testing.T) {
	r, _ := newTestRouter()

	w := doRequest(r, http.MethodPost, "/api/adaptive/"+unknownSessionID+"/answer", map[string]interface{}{"selected": 0})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(r, http.MethodPost, "/api/adaptive/missing/answer", map[string]interface{}{"selected": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code, "ID сессии должен быть UUID")

	w = doRequest(r, http.MethodPost, "/api/adaptive/"+unknownSessionID+"/answer", `{"selected":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(r, http.MethodPost, "/api/adaptive", map[string]interface{}{"modules": []string{"nope"}})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(r, http.MethodPost, "/api/adaptive", map[string]interface{}{"limit": 1000})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}
