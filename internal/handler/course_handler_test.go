package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCourseHandlerList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	fx := newHandlerFixture(t)
	handler := NewCourseHandler(fx.courses)

	c, w := newGinContext(http.MethodGet, "/courses", nil)
	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	var envelope listEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 4)
	assert.Equal(t, "CS101", envelope.Data[0]["code"])
	assert.EqualValues(t, 4, envelope.Pagination["total_count"])
}

func TestCourseHandlerListFiltered(t *testing.T) {
	gin.SetMode(gin.TestMode)
	fx := newHandlerFixture(t)
	handler := NewCourseHandler(fx.courses)

	c, w := newGinContext(http.MethodGet, "/courses?department=Mathematics&active=true", nil)
	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	var envelope listEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, "MA201", envelope.Data[0]["code"])

	c, w = newGinContext(http.MethodGet, "/courses?minCredits=3&maxCredits=4", nil)
	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 3)
}

func TestCourseHandlerGet(t *testing.T) {
	gin.SetMode(gin.TestMode)
	fx := newHandlerFixture(t)
	handler := NewCourseHandler(fx.courses)

	c, w := newGinContext(http.MethodGet, "/courses/cs101", nil)
	c.Params = gin.Params{{Key: "code", Value: "cs101"}}
	handler.Get(c)

	require.Equal(t, http.StatusOK, w.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "CS101", envelope.Data["code"])
	assert.Equal(t, "Intro to Computer Science", envelope.Data["title"])
}

func TestCourseHandlerGetNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	fx := newHandlerFixture(t)
	handler := NewCourseHandler(fx.courses)

	c, w := newGinContext(http.MethodGet, "/courses/XX999", nil)
	c.Params = gin.Params{{Key: "code", Value: "XX999"}}
	handler.Get(c)

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "course not found", decodeError(t, w.Body.Bytes()).Error.Message)
}

func TestCourseHandlerGetMalformedCode(t *testing.T) {
	gin.SetMode(gin.TestMode)
	fx := newHandlerFixture(t)
	handler := NewCourseHandler(fx.courses)

	c, w := newGinContext(http.MethodGet, "/courses/not-a-code", nil)
	c.Params = gin.Params{{Key: "code", Value: "not-a-code"}}
	handler.Get(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCourseHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	fx := newHandlerFixture(t)
	handler := NewCourseHandler(fx.courses)

	body := []byte(`{"code":"bi220","title":"Cell Biology","credits":4,"instructor":"Dr. Lin","semester":"fall","department":"Biology"}`)
	c, w := newGinContext(http.MethodPost, "/courses", body)
	handler.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "BI220", envelope.Data["code"])
	assert.Equal(t, "FALL", envelope.Data["semester"])
	assert.Equal(t, true, envelope.Data["active"])
}

func TestCourseHandlerCreateDuplicateCode(t *testing.T) {
	gin.SetMode(gin.TestMode)
	fx := newHandlerFixture(t)
	handler := NewCourseHandler(fx.courses)

	body := []byte(`{"code":"CS101","title":"Another Intro","credits":3,"semester":"FALL"}`)
	c, w := newGinContext(http.MethodPost, "/courses", body)
	handler.Create(c)

	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "course code already used", decodeError(t, w.Body.Bytes()).Error.Message)
}

func TestCourseHandlerUpdate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	fx := newHandlerFixture(t)
	handler := NewCourseHandler(fx.courses)

	body := []byte(`{"title":"Waves, Optics and Sound","credits":3,"instructor":"Dr. Novak","semester":"SPRING","department":"Physics","active":true}`)
	c, w := newGinContext(http.MethodPut, "/courses/PH301", body)
	c.Params = gin.Params{{Key: "code", Value: "PH301"}}
	handler.Update(c)

	require.Equal(t, http.StatusOK, w.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "Waves, Optics and Sound", envelope.Data["title"])
	assert.EqualValues(t, 3, envelope.Data["credits"])
}

func TestCourseHandlerDelete(t *testing.T) {
	gin.SetMode(gin.TestMode)
	fx := newHandlerFixture(t)
	handler := NewCourseHandler(fx.courses)

	c, w := newGinContext(http.MethodDelete, "/courses/CS101", nil)
	c.Params = gin.Params{{Key: "code", Value: "CS101"}}
	handler.Delete(c)

	require.Equal(t, http.StatusNoContent, w.Code)

	course, err := fx.courseRepo.FindByCode(context.Background(), "CS101")
	require.NoError(t, err)
	assert.False(t, course.Active)
}
