package mongostore

import (
	"context"
	"testing"

	"campus-maintenance-system/services/report-service/models"
	"campus-maintenance-system/services/report-service/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func newMock(t *testing.T) *mtest.T {
	return mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
}

func countResponse(mt *mtest.T, n int64) bson.D {
	ns := mt.DB.Name() + "." + mt.Coll.Name()
	if n == 0 {
		return mtest.CreateCursorResponse(0, ns, mtest.FirstBatch)
	}
	return mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{{Key: "n", Value: n}})
}

func TestApplyChangeUnsetsAssignee(t *testing.T) {
	mt := newMock(t)

	mt.Run("clear assignment", func(mt *mtest.T) {
		repo := &reportRepo{col: mt.Coll}
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{
			{Key: "_id", Value: id},
			{Key: "reporter", Value: "student-1"},
			{Key: "status", Value: string(models.StatusPending)},
			{Key: "version", Value: int64(5)},
		}}))

		status := models.StatusPending
		unassigned := ""
		rep, err := repo.ApplyChange(context.Background(), id, 4, store.ReportChange{Status: &status, AssignedTo: &unassigned})
		require.NoError(mt, err)
		assert.Equal(mt, id, rep.ID)
		assert.Equal(mt, int64(5), rep.Version)
		assert.Empty(mt, rep.AssignedTo)

		evt := mt.GetStartedEvent()
		require.NotNil(mt, evt)
		assert.Equal(mt, "findAndModify", evt.CommandName)
		assert.Equal(mt, int64(4), evt.Command.Lookup("query", "version").Int64())

		_, err = evt.Command.LookupErr("update", "$unset", "assigned_to")
		assert.NoError(mt, err)
		_, err = evt.Command.LookupErr("update", "$set", "assigned_to")
		assert.Error(mt, err)
		assert.Equal(mt, string(models.StatusPending), evt.Command.Lookup("update", "$set", "status").StringValue())
		assert.Equal(mt, int64(1), evt.Command.Lookup("update", "$inc", "version").AsInt64())
	})

	mt.Run("set assignment", func(mt *mtest.T) {
		repo := &reportRepo{col: mt.Coll}
		id := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{
			{Key: "_id", Value: id},
			{Key: "assigned_to", Value: "admin-1"},
			{Key: "version", Value: int64(2)},
		}}))

		assignee := "admin-1"
		rep, err := repo.ApplyChange(context.Background(), id, 1, store.ReportChange{AssignedTo: &assignee})
		require.NoError(mt, err)
		assert.Equal(mt, "admin-1", rep.AssignedTo)

		evt := mt.GetStartedEvent()
		require.NotNil(mt, evt)
		assert.Equal(mt, "admin-1", evt.Command.Lookup("update", "$set", "assigned_to").StringValue())
		_, err = evt.Command.LookupErr("update", "$unset")
		assert.Error(mt, err)
	})
}

func TestApplyChangeSplitsMissedWrites(t *testing.T) {
	mt := newMock(t)
	missed := mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil})

	mt.Run("stale version", func(mt *mtest.T) {
		repo := &reportRepo{col: mt.Coll}
		mt.AddMockResponses(missed, countResponse(mt, 1))

		status := models.StatusInProgress
		_, err := repo.ApplyChange(context.Background(), primitive.NewObjectID(), 3, store.ReportChange{Status: &status})
		assert.ErrorIs(mt, err, store.ErrVersionConflict)
	})

	mt.Run("missing report", func(mt *mtest.T) {
		repo := &reportRepo{col: mt.Coll}
		mt.AddMockResponses(missed, countResponse(mt, 0))

		status := models.StatusInProgress
		_, err := repo.ApplyChange(context.Background(), primitive.NewObjectID(), 3, store.ReportChange{Status: &status})
		assert.ErrorIs(mt, err, store.ErrNotFound)

		write := mt.GetStartedEvent()
		require.NotNil(mt, write)
		assert.Equal(mt, "findAndModify", write.CommandName)
		count := mt.GetStartedEvent()
		require.NotNil(mt, count)
		assert.Equal(mt, "aggregate", count.CommandName)
	})
}

func TestFindActiveByReportSkipsClosedTasks(t *testing.T) {
	mt := newMock(t)

	mt.Run("active task", func(mt *mtest.T) {
		repo := &taskRepo{col: mt.Coll}
		reportID := primitive.NewObjectID()
		taskID := primitive.NewObjectID()
		ns := mt.DB.Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
			{Key: "_id", Value: taskID},
			{Key: "report_id", Value: reportID},
			{Key: "status", Value: string(models.TaskInProgress)},
		}))

		task, err := repo.FindActiveByReport(context.Background(), reportID)
		require.NoError(mt, err)
		assert.Equal(mt, taskID, task.ID)

		evt := mt.GetStartedEvent()
		require.NotNil(mt, evt)
		assert.Equal(mt, "find", evt.CommandName)
		assert.Equal(mt, reportID, evt.Command.Lookup("filter", "report_id").ObjectID())

		values, err := evt.Command.Lookup("filter", "status", "$nin").Array().Values()
		require.NoError(mt, err)
		var excluded []string
		for _, v := range values {
			excluded = append(excluded, v.StringValue())
		}
		assert.ElementsMatch(mt, []string{string(models.TaskCompleted), string(models.TaskCancelled)}, excluded)
	})

	mt.Run("no active task", func(mt *mtest.T) {
		repo := &taskRepo{col: mt.Coll}
		ns := mt.DB.Name() + "." + mt.Coll.Name()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		_, err := repo.FindActiveByReport(context.Background(), primitive.NewObjectID())
		assert.ErrorIs(mt, err, store.ErrNotFound)
	})
}
