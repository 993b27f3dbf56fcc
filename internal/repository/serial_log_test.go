package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/wfunc/uart-reader/internal/errors"
	"github.com/wfunc/uart-reader/internal/models"
	"gorm.io/gorm"
)

// SerialLogRepositoryTestSuite 串口流量记录仓库测试套件
type SerialLogRepositoryTestSuite struct {
	suite.Suite
	db   *gorm.DB
	repo *SerialLogRepository
}

func (s *SerialLogRepositoryTestSuite) SetupTest() {
	s.db = SetupTestDB(s.T())
	s.repo = NewSerialLogRepository(s.db)
}

func (s *SerialLogRepositoryTestSuite) seed() {
	logs := []*models.SerialLog{
		CreateTestSerialLog("s1", models.DirectionSend, make([]byte, 18), ""),
		CreateTestSerialLog("s1", models.DirectionReceive, []byte{0x41, 0x0A}, ""),
		CreateTestSerialLog("s1", models.DirectionReceive, nil, "input/output error"),
		CreateTestSerialLog("s2", models.DirectionSend, make([]byte, 18), ""),
		CreateTestSerialLog("s2", models.DirectionReceive, []byte{0x01, 0x02, 0x03}, ""),
	}
	require.NoError(s.T(), s.repo.CreateBatch(logs))
}

func (s *SerialLogRepositoryTestSuite) TestCreate() {
	log := CreateTestSerialLog("s1", models.DirectionReceive, []byte{0x41}, "")
	log.CreatedAt = time.Time{}

	require.NoError(s.T(), s.repo.Create(log))
	assert.NotZero(s.T(), log.ID)
	assert.False(s.T(), log.CreatedAt.IsZero())
	assert.NotZero(s.T(), log.Timestamp)
	assert.Equal(s.T(), models.SerialLogLevelInfo, log.Level)
}

func (s *SerialLogRepositoryTestSuite) TestCreate_ErrorLevel() {
	log := CreateTestSerialLog("s1", models.DirectionReceive, nil, "device unplugged")

	require.NoError(s.T(), s.repo.Create(log))
	assert.Equal(s.T(), models.SerialLogLevelError, log.Level)
	assert.True(s.T(), log.HasError())
}

func (s *SerialLogRepositoryTestSuite) TestCreateBatch_Empty() {
	assert.NoError(s.T(), s.repo.CreateBatch(nil))
}

func (s *SerialLogRepositoryTestSuite) TestGetBySessionID() {
	s.seed()

	logs, err := s.repo.GetBySessionID("s1")
	require.NoError(s.T(), err)
	require.Len(s.T(), logs, 3)
	assert.Equal(s.T(), models.DirectionSend, logs[0].Direction)
	assert.Equal(s.T(), 18, logs[0].BytesCount)
	assert.Equal(s.T(), "41 0A", logs[1].HexData)
	assert.Equal(s.T(), "input/output error", logs[2].ErrorMsg)

	logs, err = s.repo.GetBySessionID("missing")
	require.NoError(s.T(), err)
	assert.Empty(s.T(), logs)
}

func (s *SerialLogRepositoryTestSuite) TestQuery() {
	s.seed()

	logs, total, err := s.repo.Query(&models.SerialLogQuery{Direction: models.DirectionReceive})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(3), total)
	assert.Len(s.T(), logs, 3)

	logs, total, err = s.repo.Query(&models.SerialLogQuery{SessionID: "s2", Limit: 1})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(2), total)
	require.Len(s.T(), logs, 1)
	// 默认按最新排序
	assert.Equal(s.T(), models.DirectionReceive, logs[0].Direction)

	hasError := true
	logs, total, err = s.repo.Query(&models.SerialLogQuery{HasError: &hasError})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(1), total)
	assert.Equal(s.T(), models.SerialLogLevelError, logs[0].Level)

	noError := false
	_, total, err = s.repo.Query(&models.SerialLogQuery{HasError: &noError})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(4), total)

	logs, _, err = s.repo.Query(&models.SerialLogQuery{Limit: 2, Offset: 4})
	require.NoError(s.T(), err)
	assert.Len(s.T(), logs, 1)
}

func (s *SerialLogRepositoryTestSuite) TestQuery_TimeRange() {
	s.seed()

	future := time.Now().Add(time.Hour)
	_, total, err := s.repo.Query(&models.SerialLogQuery{StartTime: &future})
	require.NoError(s.T(), err)
	assert.Zero(s.T(), total)

	past := time.Now().Add(-time.Hour)
	_, total, err = s.repo.Query(&models.SerialLogQuery{StartTime: &past, EndTime: &future})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(5), total)
}

func (s *SerialLogRepositoryTestSuite) TestGetStats() {
	s.seed()

	stats, err := s.repo.GetStats(nil, nil)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(5), stats.TotalCount)
	assert.Equal(s.T(), int64(2), stats.TotalSend)
	assert.Equal(s.T(), int64(3), stats.TotalReceive)
	assert.Equal(s.T(), int64(1), stats.TotalErrors)
	assert.Equal(s.T(), int64(2), stats.TotalSessions)
	assert.Equal(s.T(), int64(36), stats.BytesSent)
	assert.Equal(s.T(), int64(5), stats.BytesReceived)
}

func (s *SerialLogRepositoryTestSuite) TestGetStats_Empty() {
	stats, err := s.repo.GetStats(nil, nil)
	require.NoError(s.T(), err)
	assert.Zero(s.T(), stats.TotalCount)
	assert.Zero(s.T(), stats.BytesSent)
}

func (s *SerialLogRepositoryTestSuite) TestGetLatest() {
	s.seed()

	logs, err := s.repo.GetLatest(2, "")
	require.NoError(s.T(), err)
	require.Len(s.T(), logs, 2)
	assert.Equal(s.T(), "s2", logs[0].SessionID)
	assert.Equal(s.T(), 3, logs[0].BytesCount)

	logs, err = s.repo.GetLatest(10, models.DirectionSend)
	require.NoError(s.T(), err)
	assert.Len(s.T(), logs, 2)
}

func (s *SerialLogRepositoryTestSuite) TestCleanupLogs() {
	old := CreateTestSerialLog("old", models.DirectionReceive, []byte{0x01}, "")
	old.CreatedAt = time.Now().AddDate(0, 0, -40)
	require.NoError(s.T(), s.repo.Create(old))
	s.seed()

	n, err := s.repo.CleanupLogs(30)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(1), n)

	var count int64
	s.db.Unscoped().Model(&models.SerialLog{}).Count(&count)
	assert.Equal(s.T(), int64(5), count)

	_, err = s.repo.CleanupLogs(0)
	require.Error(s.T(), err)
	assert.True(s.T(), errors.Is(err, errors.ErrInvalidParam))
}

func (s *SerialLogRepositoryTestSuite) TestClosedDatabase() {
	CleanupTestDB(s.db)

	err := s.repo.Create(CreateTestSerialLog("s1", models.DirectionSend, nil, ""))
	require.Error(s.T(), err)
	assert.True(s.T(), errors.Is(err, errors.ErrDatabaseInsert))

	_, err = s.repo.GetBySessionID("s1")
	assert.True(s.T(), errors.Is(err, errors.ErrDatabaseQuery))
}

func TestSerialLogRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(SerialLogRepositoryTestSuite))
}
