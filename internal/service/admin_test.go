package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"media_syndicator/internal/config"
	"media_syndicator/internal/domain"
	"media_syndicator/internal/service/mocks"
	"media_syndicator/internal/storage/memory"
)

type AdminTestSuite struct {
	suite.Suite
	ctrl *gomock.Controller

	source   *mocks.MockSource
	sink     *mocks.MockSink
	mappings *memory.MappingStore
	settings *memory.SettingsStore

	admin *Admin
}

func (s *AdminTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.source = mocks.NewMockSource(s.ctrl)
	s.sink = mocks.NewMockSink(s.ctrl)
	s.mappings = memory.NewMappingStore()
	s.settings = memory.NewSettingsStore()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	s.admin = NewAdmin(s.source, s.sink, s.mappings, s.settings, logger, config.CycleConfig{
		DefaultIntervalMinutes: 10,
		DefaultItemsPerCycle:   1,
	})
}

func (s *AdminTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestAdminTestSuite(t *testing.T) {
	suite.Run(t, new(AdminTestSuite))
}

func (s *AdminTestSuite) TestSetMapping_Upserts() {
	ctx := context.Background()
	s.source.EXPECT().IsAdultFlagged(ctx, "foo").Return(true, nil).Times(2)

	_, err := s.admin.SetMapping(ctx, "Foo", "chan-x")
	s.NoError(err)
	m, err := s.admin.SetMapping(ctx, "r/foo", "chan-y")
	s.NoError(err)
	s.Equal(domain.Mapping{SourceID: "foo", DestinationID: "chan-y"}, m)

	list, err := s.mappings.List(ctx)
	s.NoError(err)
	s.Equal([]domain.Mapping{{SourceID: "foo", DestinationID: "chan-y"}}, list)
}

func (s *AdminTestSuite) TestSetMapping_RejectsNonAdultSource() {
	ctx := context.Background()
	s.source.EXPECT().IsAdultFlagged(ctx, "aww").Return(false, nil)

	_, err := s.admin.SetMapping(ctx, "aww", "chan-x")

	s.ErrorIs(err, domain.ErrSourceNotEligible)
	list, _ := s.mappings.List(ctx)
	s.Empty(list)
}

func (s *AdminTestSuite) TestSetMapping_UnknownSource() {
	ctx := context.Background()
	s.source.EXPECT().IsAdultFlagged(ctx, "nosuchsub").Return(false, domain.ErrSourceNotFound)

	_, err := s.admin.SetMapping(ctx, "nosuchsub", "chan-x")

	s.ErrorIs(err, domain.ErrSourceNotFound)
	list, _ := s.mappings.List(ctx)
	s.Empty(list)
}

func (s *AdminTestSuite) TestSetMapping_SourceOutage() {
	ctx := context.Background()
	s.source.EXPECT().IsAdultFlagged(ctx, "pics").Return(false, errors.New("dial tcp: i/o timeout"))

	_, err := s.admin.SetMapping(ctx, "pics", "chan-x")

	s.ErrorIs(err, domain.ErrSourceUnavailable)
}

func (s *AdminTestSuite) TestSetMapping_RequiresArguments() {
	_, err := s.admin.SetMapping(context.Background(), "  ", "chan-x")
	s.ErrorIs(err, domain.ErrInvalidArgument)

	_, err = s.admin.SetMapping(context.Background(), "pics", "")
	s.ErrorIs(err, domain.ErrInvalidArgument)
}

func (s *AdminTestSuite) TestRemoveMapping() {
	ctx := context.Background()
	s.Require().NoError(s.mappings.Upsert(ctx, domain.Mapping{SourceID: "pics", DestinationID: "chan-x"}))

	existed, err := s.admin.RemoveMapping(ctx, "PICS")
	s.NoError(err)
	s.True(existed)

	existed, err = s.admin.RemoveMapping(ctx, "pics")
	s.NoError(err)
	s.False(existed)
}

func (s *AdminTestSuite) TestListMappings_FallsBackToRawID() {
	ctx := context.Background()
	s.Require().NoError(s.mappings.Upsert(ctx, domain.Mapping{SourceID: "a", DestinationID: "111"}))
	s.Require().NoError(s.mappings.Upsert(ctx, domain.Mapping{SourceID: "b", DestinationID: "222"}))

	s.sink.EXPECT().Resolve(ctx, "111").Return(domain.Destination{ID: "111", Reference: "<#111>"}, nil)
	s.sink.EXPECT().Resolve(ctx, "222").Return(domain.Destination{}, domain.ErrDestinationUnresolvable)

	views, err := s.admin.ListMappings(ctx)

	s.NoError(err)
	s.Require().Len(views, 2)
	s.Equal("<#111>", views[0].Reference)
	s.Equal("(ID: 222)", views[1].Reference)
}

func (s *AdminTestSuite) TestSetInterval_Boundaries() {
	ctx := context.Background()
	s.NoError(s.admin.SetInterval(ctx, 3))

	err := s.admin.SetInterval(ctx, 0)
	s.ErrorIs(err, domain.ErrInvalidArgument)

	err = s.admin.SetInterval(ctx, -5)
	s.ErrorIs(err, domain.ErrInvalidArgument)

	settings, err := s.admin.Settings(ctx)
	s.NoError(err)
	s.Equal(3, settings.IntervalMinutes)
}

func (s *AdminTestSuite) TestSetItemsPerCycle_Boundaries() {
	ctx := context.Background()
	s.NoError(s.admin.SetItemsPerCycle(ctx, 1))
	s.NoError(s.admin.SetItemsPerCycle(ctx, 10))

	s.ErrorIs(s.admin.SetItemsPerCycle(ctx, 11), domain.ErrInvalidArgument)
	s.ErrorIs(s.admin.SetItemsPerCycle(ctx, 0), domain.ErrInvalidArgument)

	settings, err := s.admin.Settings(ctx)
	s.NoError(err)
	s.Equal(10, settings.ItemsPerCycle)
}

func (s *AdminTestSuite) TestSettings_Defaults() {
	settings, err := s.admin.Settings(context.Background())

	s.NoError(err)
	s.Equal(domain.Settings{IntervalMinutes: 10, ItemsPerCycle: 1}, settings)
}

func (s *AdminTestSuite) TestSetInterval_StoreError() {
	settings := mocks.NewMockSettingsStore(s.ctrl)
	settings.EXPECT().PutInt(gomock.Any(), domain.SettingInterval, 5).Return(errors.New("read-only replica"))
	s.admin.settings = settings

	err := s.admin.SetInterval(context.Background(), 5)

	s.Error(err)
	s.NotErrorIs(err, domain.ErrInvalidArgument)
}

func (s *AdminTestSuite) TestSetMapping_StoreError() {
	ctx := context.Background()
	mappings := mocks.NewMockMappingStore(s.ctrl)
	mappings.EXPECT().
		Upsert(gomock.Any(), domain.Mapping{SourceID: "pics", DestinationID: "chan-1"}).
		Return(errors.New("disk full"))
	s.admin.mappings = mappings
	s.source.EXPECT().IsAdultFlagged(ctx, "pics").Return(true, nil)

	_, err := s.admin.SetMapping(ctx, "pics", "chan-1")

	s.ErrorContains(err, "disk full")
}
