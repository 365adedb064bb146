package chat_test

import (
	"context"
	"testing"

	"bulletbot/internal/bullet"
	"bulletbot/internal/chat"
	"bulletbot/internal/logging"
	"bulletbot/internal/store/storetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(t *testing.T) *chat.Router {
	t.Helper()
	return chat.NewRouter(bullet.NewService(storetest.New(t), logging.Nop()), logging.Nop())
}

// reply runs line and fails the test on a fault.
func reply(t *testing.T, r *chat.Router, nick, line string) string {
	t.Helper()
	resp, err := r.Handle(context.Background(), nick, line)
	require.NoError(t, err)
	return resp
}

func TestHandle_Conversation(t *testing.T) {
	r := newRouter(t)

	assert.Equal(t, "Wrote bullet: bullet A", reply(t, r, "nick", "bullet A"))
	assert.Equal(t, "Wrote bullet: test bullet B", reply(t, r, "nick", "  test bullet B  "))
	assert.Equal(t, "Wrote bullet: third", reply(t, r, "nick", "third"))

	assert.Equal(t, "0. bullet A\n1. test bullet B\n2. third", reply(t, r, "nick", ".list"))
	assert.Equal(t, "Deleted bullet 0: 'bullet A'\nDeleted bullet 2: 'third'", reply(t, r, "nick", ".rm 0, 2"))
	assert.Equal(t, "0. test bullet B", reply(t, r, "nick", ".ls"))
	assert.Equal(t, "Bullet 3 not found.", reply(t, r, "nick", ".delete 3"))
	assert.Equal(t, bullet.DeleteHint, reply(t, r, "nick", ".delete"))
}

func TestHandle_Register(t *testing.T) {
	r := newRouter(t)

	assert.Equal(t, "Registered nick jdoe as Jane Doe", reply(t, r, "jdoe", ".register Jane Doe"))
	assert.Equal(t, bullet.RegisterHint, reply(t, r, "jdoe", ".register"))
}

func TestHandle_HelpNeverCreatesBullet(t *testing.T) {
	r := newRouter(t)

	for _, line := range []string{"help", "commands", ".help", ".commands", " HELP "} {
		assert.Equal(t, chat.HelpMessage, reply(t, r, "nick", line), line)
	}
	assert.Equal(t, bullet.NoUnsentText, reply(t, r, "nick", ".list"))
}

func TestHandle_UnknownCommand(t *testing.T) {
	r := newRouter(t)

	assert.Equal(t, chat.UnknownCommand+"\n"+chat.HelpMessage, reply(t, r, "nick", ".frobnicate now"))
	assert.Equal(t, bullet.NoUnsentText, reply(t, r, "nick", ".list"))
}

func TestHandle_BlankLine(t *testing.T) {
	r := newRouter(t)
	assert.Empty(t, reply(t, r, "nick", "   "))
}

func TestHandle_FaultIsApology(t *testing.T) {
	st := storetest.New(t)
	r := chat.NewRouter(bullet.NewService(st, logging.Nop()), logging.Nop())

	sqlDB, err := st.DB.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	for _, line := range []string{".list", "a bullet"} {
		resp, err := r.Handle(context.Background(), "nick", line)
		require.Error(t, err, line)
		assert.Equal(t, chat.Apology, resp)
	}
}

func TestHandle_ApologyTextIsAnOrdinaryBullet(t *testing.T) {
	r := newRouter(t)

	assert.Equal(t, "Wrote bullet: "+chat.Apology, reply(t, r, "nick", chat.Apology))
	assert.Equal(t, "0. "+chat.Apology, reply(t, r, "nick", ".list"))
}
