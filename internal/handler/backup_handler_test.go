package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-hq/registrar-api/internal/models"
	"github.com/campus-hq/registrar-api/internal/service"
)

func newBackupHandler(t *testing.T, fx *handlerFixture) *BackupHandler {
	t.Helper()
	backups, err := service.NewBackupService(fx.studentRepo, fx.courseRepo, fx.registry, t.TempDir(), nil)
	require.NoError(t, err)
	return NewBackupHandler(backups)
}

func TestBackupHandlerCreateAndList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	fx := newHandlerFixture(t)
	seedTranscript(t, fx)
	handler := newBackupHandler(t, fx)

	c, w := newGinContext(http.MethodPost, "/backups", nil)
	handler.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	name, _ := envelope.Data["name"].(string)
	require.NotEmpty(t, name)
	assert.EqualValues(t, 3, envelope.Data["students"])
	assert.EqualValues(t, 3, envelope.Data["enrollments"])

	c, w = newGinContext(http.MethodGet, "/backups", nil)
	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	var list listEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Data, 1)
	assert.Equal(t, name, list.Data[0]["name"])

	c, w = newGinContext(http.MethodGet, "/backups/"+name+"/size", nil)
	c.Params = gin.Params{{Key: "name", Value: name}}
	handler.Size(c)
	require.Equal(t, http.StatusOK, w.Code)
	var sized responseEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sized))
	assert.Greater(t, sized.Data["size_bytes"].(float64), 0.0)
}

func TestBackupHandlerRestore(t *testing.T) {
	gin.SetMode(gin.TestMode)
	fx := newHandlerFixture(t)
	seedTranscript(t, fx)
	handler := newBackupHandler(t, fx)
	ctx := context.Background()

	c, w := newGinContext(http.MethodPost, "/backups", nil)
	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	name := envelope.Data["name"].(string)

	// Drift the registry past the snapshot, then roll back.
	_, err := fx.registry.UpdateGrade(ctx, 1, "CS101", models.GradeF)
	require.NoError(t, err)

	c, w = newGinContext(http.MethodPost, "/backups/"+name+"/restore", nil)
	c.Params = gin.Params{{Key: "name", Value: name}}
	handler.Restore(c)

	require.Equal(t, http.StatusOK, w.Code)
	restored, err := fx.registry.FindEnrollment(ctx, 1, "CS101")
	require.NoError(t, err)
	assert.Equal(t, models.GradeB, restored.Grade)
}

func TestBackupHandlerRestoreUnknown(t *testing.T) {
	gin.SetMode(gin.TestMode)
	fx := newHandlerFixture(t)
	handler := newBackupHandler(t, fx)

	c, w := newGinContext(http.MethodPost, "/backups/backup_20200101_000000/restore", nil)
	c.Params = gin.Params{{Key: "name", Value: "backup_20200101_000000"}}
	handler.Restore(c)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestBackupHandlerDelete(t *testing.T) {
	gin.SetMode(gin.TestMode)
	fx := newHandlerFixture(t)
	handler := newBackupHandler(t, fx)

	c, w := newGinContext(http.MethodPost, "/backups", nil)
	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	name := envelope.Data["name"].(string)

	c, w = newGinContext(http.MethodDelete, "/backups/"+name, nil)
	c.Params = gin.Params{{Key: "name", Value: name}}
	handler.Delete(c)
	require.Equal(t, http.StatusNoContent, w.Code)

	c, w = newGinContext(http.MethodDelete, "/backups/"+name, nil)
	c.Params = gin.Params{{Key: "name", Value: name}}
	handler.Delete(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}
