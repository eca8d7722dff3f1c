package ledger_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"pokermates/internal/model"
	"pokermates/internal/service/ledger"
	appErr "pokermates/pkg/errors"
	"pokermates/pkg/logger"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	logger.InitLogger("test")
	os.Exit(m.Run())
}

func newService(t *testing.T) (*gorm.DB, *ledger.Service) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&model.User{}, &model.Room{}, &model.RoomMember{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db, ledger.NewService(db, ledger.DefaultConfig())
}

func seedUser(t *testing.T, db *gorm.DB, username string, chips int64) int64 {
	t.Helper()
	user := model.User{Username: username, PasswordHash: "x", Chips: chips}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return user.ID
}

func createRoom(t *testing.T, svc *ledger.Service, hostID int64) *ledger.RoomDetails {
	t.Helper()
	details, err := svc.CreateRoom(context.Background(), ledger.CreateRoomParams{
		HostUserID: hostID,
		Name:       "Friday Night",
		MaxPlayers: 4,
		SmallBlind: 10,
		BigBlind:   20,
		BuyIn:      1000,
	})
	if err != nil {
		t.Fatalf("create room failed: %v", err)
	}
	return details
}

func TestCreateRoom(t *testing.T) {
	ctx := context.Background()
	db, svc := newService(t)
	hostID := seedUser(t, db, "alice", 5000)

	details := createRoom(t, svc, hostID)

	if len(details.Code) != 6 {
		t.Fatalf("expected 6-char room code, got %q", details.Code)
	}
	if details.BuyInRange.Min != 400 || details.BuyInRange.Max != 4000 {
		t.Fatalf("unexpected buy-in range: %+v", details.BuyInRange)
	}
	if len(details.Members) != 1 || !details.Members[0].IsHost || details.Members[0].Chips != 1000 {
		t.Fatalf("unexpected members: %+v", details.Members)
	}

	var host model.User
	if err := db.WithContext(ctx).First(&host, hostID).Error; err != nil {
		t.Fatalf("failed to reload host: %v", err)
	}
	if host.Chips != 4000 {
		t.Fatalf("expected host balance 4000 after buy-in, got %d", host.Chips)
	}
}

func TestCreateRoomValidation(t *testing.T) {
	ctx := context.Background()
	db, svc := newService(t)
	hostID := seedUser(t, db, "alice", 5000)

	_, err := svc.CreateRoom(ctx, ledger.CreateRoomParams{
		HostUserID: hostID, Name: "bad", SmallBlind: 20, BigBlind: 20, BuyIn: 1000,
	})
	if err != appErr.ErrInvalidBlinds {
		t.Fatalf("expected ErrInvalidBlinds, got %v", err)
	}

	_, err = svc.CreateRoom(ctx, ledger.CreateRoomParams{
		HostUserID: hostID, Name: "bad", SmallBlind: 10, BigBlind: 20, BuyIn: 100,
	})
	if !errors.Is(err, appErr.ErrBuyInOutOfRange) {
		t.Fatalf("expected ErrBuyInOutOfRange, got %v", err)
	}

	poorID := seedUser(t, db, "bob", 100)
	_, err = svc.CreateRoom(ctx, ledger.CreateRoomParams{
		HostUserID: poorID, Name: "bad", SmallBlind: 10, BigBlind: 20, BuyIn: 1000,
	})
	if err != appErr.ErrInsufficientChips {
		t.Fatalf("expected ErrInsufficientChips, got %v", err)
	}
}

func TestJoinRoomIdempotent(t *testing.T) {
	ctx := context.Background()
	db, svc := newService(t)
	hostID := seedUser(t, db, "alice", 5000)
	joinerID := seedUser(t, db, "bob", 3000)

	details := createRoom(t, svc, hostID)

	first, err := svc.JoinRoom(ctx, details.Code, joinerID, 800)
	if err != nil {
		t.Fatalf("join failed: %v", err)
	}
	if len(first.Members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(first.Members))
	}

	second, err := svc.JoinRoom(ctx, details.Code, joinerID, 800)
	if err != nil {
		t.Fatalf("re-join failed: %v", err)
	}
	if len(second.Members) != 2 {
		t.Fatalf("re-join created a duplicate member: %+v", second.Members)
	}

	var joiner model.User
	if err := db.First(&joiner, joinerID).Error; err != nil {
		t.Fatalf("failed to reload joiner: %v", err)
	}
	if joiner.Chips != 2200 {
		t.Fatalf("re-join double-debited: balance %d, want 2200", joiner.Chips)
	}
}

func TestJoinRoomFull(t *testing.T) {
	ctx := context.Background()
	db, svc := newService(t)
	hostID := seedUser(t, db, "host", 5000)
	details := createRoom(t, svc, hostID)

	for i := 0; i < 3; i++ {
		uid := seedUser(t, db, fmt.Sprintf("player%d", i), 5000)
		if _, err := svc.JoinRoom(ctx, details.Code, uid, 1000); err != nil {
			t.Fatalf("join %d failed: %v", i, err)
		}
	}

	lateID := seedUser(t, db, "late", 5000)
	_, err := svc.JoinRoom(ctx, details.Code, lateID, 1000)
	if err != appErr.ErrRoomFull {
		t.Fatalf("expected ErrRoomFull, got %v", err)
	}
}

func TestJoinRoomUnknownCode(t *testing.T) {
	_, svc := newService(t)
	uid := int64(1)
	_, err := svc.JoinRoom(context.Background(), "ZZZZZZ", uid, 1000)
	if err != appErr.ErrRoomNotFound {
		t.Fatalf("expected ErrRoomNotFound, got %v", err)
	}
}

func TestLeaveRoomHostReelection(t *testing.T) {
	ctx := context.Background()
	db, svc := newService(t)
	hostID := seedUser(t, db, "host", 5000)
	secondID := seedUser(t, db, "second", 5000)
	thirdID := seedUser(t, db, "third", 5000)

	details := createRoom(t, svc, hostID)
	if _, err := svc.JoinRoom(ctx, details.Code, secondID, 1000); err != nil {
		t.Fatalf("join failed: %v", err)
	}
	if _, err := svc.JoinRoom(ctx, details.Code, thirdID, 1000); err != nil {
		t.Fatalf("join failed: %v", err)
	}

	after, err := svc.LeaveRoom(ctx, details.ID, hostID)
	if err != nil {
		t.Fatalf("leave failed: %v", err)
	}
	if len(after.Members) != 2 {
		t.Fatalf("expected 2 members after host left, got %d", len(after.Members))
	}
	if after.Members[0].UserID != secondID || !after.Members[0].IsHost {
		t.Fatalf("expected earliest remaining member to be host: %+v", after.Members)
	}

	var host model.User
	if err := db.First(&host, hostID).Error; err != nil {
		t.Fatalf("failed to reload host: %v", err)
	}
	if host.Chips != 5000 {
		t.Fatalf("host stack not returned on leave: balance %d", host.Chips)
	}
}

func TestLeaveRoomLastMemberDissolvesRoom(t *testing.T) {
	ctx := context.Background()
	db, svc := newService(t)
	hostID := seedUser(t, db, "host", 5000)
	details := createRoom(t, svc, hostID)

	after, err := svc.LeaveRoom(ctx, details.ID, hostID)
	if err != nil {
		t.Fatalf("leave failed: %v", err)
	}
	if after != nil {
		t.Fatalf("expected nil details for dissolved room, got %+v", after)
	}

	var count int64
	if err := db.Model(&model.Room{}).Where("id = ?", details.ID).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("room row should be gone, found %d", count)
	}
}

func TestLeaveRoomNonMemberIsNoOp(t *testing.T) {
	ctx := context.Background()
	db, svc := newService(t)
	hostID := seedUser(t, db, "host", 5000)
	strangerID := seedUser(t, db, "stranger", 5000)
	details := createRoom(t, svc, hostID)

	after, err := svc.LeaveRoom(ctx, details.ID, strangerID)
	if err != nil {
		t.Fatalf("leave failed: %v", err)
	}
	if len(after.Members) != 1 {
		t.Fatalf("no-op leave changed membership: %+v", after.Members)
	}

	var stranger model.User
	if err := db.First(&stranger, strangerID).Error; err != nil {
		t.Fatalf("failed to reload stranger: %v", err)
	}
	if stranger.Chips != 5000 {
		t.Fatalf("no-op leave changed balance: %d", stranger.Chips)
	}
}

// Global balance plus the sum of room stacks stays constant through any
// join/leave sequence.
func TestChipConservation(t *testing.T) {
	ctx := context.Background()
	db, svc := newService(t)

	userIDs := make([]int64, 0, 4)
	for i := 0; i < 4; i++ {
		userIDs = append(userIDs, seedUser(t, db, fmt.Sprintf("user%d", i), 10000))
	}

	total := func() int64 {
		var balances int64
		if err := db.Model(&model.User{}).Select("COALESCE(SUM(chips), 0)").Scan(&balances).Error; err != nil {
			t.Fatalf("sum balances: %v", err)
		}
		var stacks int64
		if err := db.Model(&model.RoomMember{}).Select("COALESCE(SUM(chips), 0)").Scan(&stacks).Error; err != nil {
			t.Fatalf("sum stacks: %v", err)
		}
		return balances + stacks
	}

	want := total()

	details := createRoom(t, svc, userIDs[0])
	for _, uid := range userIDs[1:] {
		if _, err := svc.JoinRoom(ctx, details.Code, uid, 600); err != nil {
			t.Fatalf("join failed: %v", err)
		}
		if got := total(); got != want {
			t.Fatalf("conservation broken after join: got %d want %d", got, want)
		}
	}
	for _, uid := range userIDs {
		if _, err := svc.LeaveRoom(ctx, details.ID, uid); err != nil {
			t.Fatalf("leave failed: %v", err)
		}
		if got := total(); got != want {
			t.Fatalf("conservation broken after leave: got %d want %d", got, want)
		}
	}
}

func TestListActiveRooms(t *testing.T) {
	ctx := context.Background()
	db, svc := newService(t)
	aliceID := seedUser(t, db, "alice", 20000)
	bobID := seedUser(t, db, "bob", 20000)

	createRoom(t, svc, aliceID)
	if _, err := svc.CreateRoom(ctx, ledger.CreateRoomParams{
		HostUserID: bobID, Name: "Second", SmallBlind: 5, BigBlind: 10, BuyIn: 500,
	}); err != nil {
		t.Fatalf("create second room failed: %v", err)
	}

	rooms, err := svc.ListActiveRooms(ctx)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(rooms) != 2 {
		t.Fatalf("expected 2 rooms, got %d", len(rooms))
	}
	sawSmallStakes := false
	for _, room := range rooms {
		if room.PlayerCount != 1 {
			t.Fatalf("expected player count 1, got %d for %s", room.PlayerCount, room.Code)
		}
		if room.BigBlind == 10 && room.BuyInRange.Min == 200 && room.BuyInRange.Max == 2000 {
			sawSmallStakes = true
		}
	}
	if !sawSmallStakes {
		t.Fatalf("expected a 5/10 room with buy-in range 200..2000: %+v", rooms)
	}
}
