package moderation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"

	"github.com/medshare/moderation/internal/db"
	"github.com/medshare/moderation/internal/models"
	"github.com/medshare/moderation/internal/notify"
)

const (
	adminID int64 = 1
	modID   int64 = 2
	mod2ID  int64 = 3
	aliceID int64 = 4
	bobID   int64 = 5
	ownerID int64 = 7
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []*models.Notification
	err  error
}

func (r *recordingNotifier) Notify(_ context.Context, n *models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return r.err
}

func (r *recordingNotifier) types() []int16 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int16, len(r.sent))
	for i, n := range r.sent {
		out[i] = n.Type
	}
	return out
}

var errRoleLookup = errors.New("role store unavailable")

// failingResolver fails role lookups for one user.
type failingResolver struct {
	next RoleResolver
	fail int64
}

func (r failingResolver) RoleOf(ctx context.Context, userID int64) (models.Role, error) {
	if userID == r.fail {
		return models.RoleRegular, errRoleLookup
	}
	return r.next.RoleOf(ctx, userID)
}

type fixture struct {
	t        *testing.T
	ctx      context.Context
	engine   *Engine
	conn     *db.DB
	content  *db.ContentRepository
	ledger   *db.LedgerRepository
	users    *db.UserRepository
	notices  *db.NotificationRepository
	notifier *recordingNotifier
	now      time.Time
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	ctx := context.Background()

	conn, err := db.Open(sqlite.Open(":memory:"), "error")
	require.NoError(t, err)
	sqlDB, err := conn.DB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, conn.Migrate(ctx))

	repo := db.NewRepository(conn.DB)
	roles := db.NewRoleRepository(repo)
	f := &fixture{
		t:        t,
		ctx:      ctx,
		conn:     conn,
		content:  db.NewContentRepository(repo),
		ledger:   db.NewLedgerRepository(repo),
		users:    db.NewUserRepository(repo),
		notices:  db.NewNotificationRepository(repo),
		notifier: &recordingNotifier{},
		now:      time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}
	f.engine = NewEngine(Stores{
		Content:       f.content,
		Ledger:        f.ledger,
		Sanctions:     db.NewSanctionRepository(repo),
		Users:         f.users,
		Roles:         roles,
		Notifications: f.notices,
	}, roles, f.notifier, opts)
	f.engine.SetClock(func() time.Time { return f.now })

	for _, u := range []struct {
		id   int64
		name string
		role models.Role
	}{
		{adminID, "admin", models.RoleAdmin},
		{modID, "mod", models.RoleModerator},
		{mod2ID, "mod2", models.RoleModerator},
		{aliceID, "alice", models.RoleRegular},
		{bobID, "bob", models.RoleRegular},
		{ownerID, "owner", models.RoleRegular},
	} {
		require.NoError(t, f.users.Create(ctx, &models.User{ID: u.id, Username: u.name, CreatedAt: f.now}))
		if u.role != models.RoleRegular {
			require.NoError(t, roles.Set(ctx, &models.RoleAssignment{UserID: u.id, Role: u.role, GrantedBy: adminID, CreatedAt: f.now}))
		}
	}
	return f
}

func (f *fixture) tick() {
	f.now = f.now.Add(time.Minute)
}

func (f *fixture) item(category models.Category, owner int64) models.ParentRef {
	f.t.Helper()
	it := &models.ContentItem{OwnerID: owner, Title: "title", Body: "body", CreatedAt: f.now}
	require.NoError(f.t, f.content.CreateItem(f.ctx, category, it))
	f.tick()
	return models.RootRef(category, it.ID)
}

// anonymousItem seeds root content its owner posted anonymously.
func (f *fixture) anonymousItem(category models.Category, owner int64) models.ParentRef {
	f.t.Helper()
	ref := f.item(category, owner)
	require.NoError(f.t, f.content.SetAnonymous(f.ctx, &models.AnonymityFlag{
		Category:  category,
		TargetID:  ref.ID(),
		CreatedAt: f.now,
	}))
	return ref
}

func (f *fixture) reply(actor int64, parent models.ParentRef, anonymous bool) *Entry {
	f.t.Helper()
	e, err := f.engine.CreateComment(f.ctx, actor, parent, "a reply", anonymous)
	require.NoError(f.t, err)
	f.tick()
	return e
}

func TestEngine_SelfDeleteCascades(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	q10 := f.item(models.CategoryQuestion, ownerID)
	c1 := f.reply(aliceID, q10, false)
	c2 := f.reply(bobID, models.CommentRef(c1.ID), false)

	res, err := f.engine.Remove(f.ctx, ownerID, models.CategoryQuestion, q10.ID(), "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeHardDeleted, res.Outcome)
	assert.EqualValues(t, 2, res.Cascaded)

	left, err := f.content.ListComments(f.ctx, q10)
	require.NoError(t, err)
	assert.Empty(t, left)
	for _, id := range []int64{c1.ID, c2.ID} {
		c, err := f.content.GetComment(f.ctx, id)
		require.NoError(t, err)
		assert.Nil(t, c)
	}
	item, err := f.content.GetItem(f.ctx, models.CategoryQuestion, q10.ID())
	require.NoError(t, err)
	assert.Nil(t, item)

	_, err = f.engine.GetVisibleTree(f.ctx, q10, Viewer{})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.engine.Remove(f.ctx, ownerID, models.CategoryQuestion, q10.ID(), "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEngine_SelfDeleteComment(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	d := f.item(models.CategoryDiscussion, ownerID)
	c1 := f.reply(aliceID, d, false)
	f.reply(bobID, models.CommentRef(c1.ID), false)
	keep := f.reply(bobID, d, false)

	res, err := f.engine.Remove(f.ctx, aliceID, models.CategoryDiscussionComment, c1.ID, "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeHardDeleted, res.Outcome)
	assert.EqualValues(t, 1, res.Cascaded)

	view, err := f.engine.GetVisibleTree(f.ctx, d, Viewer{})
	require.NoError(t, err)
	assert.Equal(t, []int64{keep.ID}, ids(view.Roots))
}

func TestEngine_RestoreMissingEntry(t *testing.T) {
	f := newFixture(t, DefaultOptions())

	_, err := f.engine.Restore(f.ctx, adminID, 999)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.engine.Restore(f.ctx, modID, 999)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestEngine_SoftDeleteAndRestore(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	q := f.item(models.CategoryQuestion, ownerID)
	c1 := f.reply(aliceID, q, false)
	f.reply(bobID, models.CommentRef(c1.ID), false)
	c3 := f.reply(bobID, q, false)

	outcome, err := f.engine.Report(f.ctx, bobID, models.CategoryQuestionComment, c1.ID, "rude")
	require.NoError(t, err)
	assert.Equal(t, OutcomeReported, outcome)

	res, err := f.engine.Remove(f.ctx, modID, models.CategoryQuestionComment, c1.ID, "rude")
	require.NoError(t, err)
	assert.Equal(t, OutcomeSoftDeleted, res.Outcome)

	res, err = f.engine.Remove(f.ctx, mod2ID, models.CategoryQuestionComment, c1.ID, "rude")
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnchanged, res.Outcome)

	queue, err := f.engine.ReportQueue(f.ctx, modID, 0)
	require.NoError(t, err)
	assert.Empty(t, queue, "removal closes the report")

	for _, viewer := range []Viewer{{}, {ID: aliceID}, {ID: adminID}} {
		view, err := f.engine.GetVisibleTree(f.ctx, q, viewer)
		require.NoError(t, err)
		assert.Equal(t, []int64{c3.ID}, ids(view.Roots))
		assert.Equal(t, 1, view.Orphans, "the reply under the removed comment is hidden")
	}

	removed, err := f.engine.RemovedContent(f.ctx, aliceID, aliceID)
	require.NoError(t, err)
	require.Len(t, removed, 1)
	_, err = f.engine.RemovedContent(f.ctx, bobID, aliceID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.engine.Restore(f.ctx, modID, removed[0].ID)
	assert.ErrorIs(t, err, ErrForbidden)
	outcome, err = f.engine.Restore(f.ctx, adminID, removed[0].ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeRestored, outcome)

	view, err := f.engine.GetVisibleTree(f.ctx, q, Viewer{})
	require.NoError(t, err)
	assert.Equal(t, []int64{c1.ID, c3.ID}, ids(view.Roots))
	assert.Equal(t, 3, view.Count())
}

func TestEngine_RemovalMatrix(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	modPost := f.item(models.CategoryPost, mod2ID)
	adminPost := f.item(models.CategoryPost, adminID)
	alicePost := f.item(models.CategoryPost, aliceID)

	res, err := f.engine.Remove(f.ctx, modID, models.CategoryPost, modPost.ID(), "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeSoftDeleted, res.Outcome, "moderator may remove another moderator's content")

	_, err = f.engine.Remove(f.ctx, modID, models.CategoryPost, adminPost.ID(), "")
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, "you do not have permission", err.Error())

	_, err = f.engine.Remove(f.ctx, bobID, models.CategoryPost, alicePost.ID(), "")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.engine.Remove(f.ctx, 0, models.CategoryPost, alicePost.ID(), "")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.engine.Remove(f.ctx, modID, models.CategoryPost, 12345, "")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.engine.Remove(f.ctx, modID, models.Category(42), 1, "")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestEngine_Report(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	alicePost := f.item(models.CategoryPost, aliceID)
	adminPost := f.item(models.CategoryPost, adminID)

	outcome, err := f.engine.Report(f.ctx, bobID, models.CategoryPost, alicePost.ID(), "spam")
	require.NoError(t, err)
	assert.Equal(t, OutcomeReported, outcome)

	outcome, err = f.engine.Report(f.ctx, bobID, models.CategoryPost, alicePost.ID(), "spam")
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnchanged, outcome)

	_, err = f.engine.Report(f.ctx, aliceID, models.CategoryPost, alicePost.ID(), "")
	assert.ErrorIs(t, err, ErrForbidden, "own content")
	_, err = f.engine.Report(f.ctx, bobID, models.CategoryPost, adminPost.ID(), "")
	assert.ErrorIs(t, err, ErrForbidden, "admin content")
	_, err = f.engine.Report(f.ctx, modID, models.CategoryPost, alicePost.ID(), "")
	assert.ErrorIs(t, err, ErrForbidden, "moderators remove instead")

	items, err := f.engine.GetVisibleItems(f.ctx, models.CategoryPost, Viewer{}, 0, 0)
	require.NoError(t, err)
	assert.Len(t, items, 2, "reports do not hide content")

	queue, err := f.engine.ReportQueue(f.ctx, modID, 10)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	_, err = f.engine.ReportQueue(f.ctx, bobID, 10)
	assert.ErrorIs(t, err, ErrForbidden)

	outcome, err = f.engine.DismissReport(f.ctx, modID, queue[0].ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDismissed, outcome)
	_, err = f.engine.DismissReport(f.ctx, modID, queue[0].ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEngine_AnonymousComment(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	q := f.item(models.CategoryQuestion, aliceID)
	c := f.reply(ownerID, q, true)
	assert.Equal(t, ownerID, c.Author.ID)

	view, err := f.engine.GetVisibleTree(f.ctx, q, Viewer{})
	require.NoError(t, err)
	require.Len(t, view.Roots, 1)
	got := view.Roots[0]
	assert.Equal(t, AnonymousAuthor, got.Author)
	assert.NotEqual(t, ownerID, got.Author.ID)
	assert.Zero(t, got.OwnerID)

	view, err = f.engine.GetVisibleTree(f.ctx, q, Viewer{ID: ownerID})
	require.NoError(t, err)
	assert.Equal(t, ownerID, view.Roots[0].Author.ID)
	assert.Equal(t, "owner", view.Roots[0].Author.Username)

	assert.Equal(t, "alice", view.Item.Author.Username)
}

func TestEngine_GetVisibleItems(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	first := f.item(models.CategoryDiscussion, aliceID)
	second := f.item(models.CategoryDiscussion, bobID)
	third := f.item(models.CategoryDiscussion, bobID)

	_, err := f.engine.Remove(f.ctx, modID, models.CategoryDiscussion, second.ID(), "")
	require.NoError(t, err)

	items, err := f.engine.GetVisibleItems(f.ctx, models.CategoryDiscussion, Viewer{ID: bobID}, 10, 0)
	require.NoError(t, err)
	got := make([]int64, len(items))
	for i := range items {
		got[i] = items[i].ID
	}
	assert.Equal(t, []int64{third.ID(), first.ID()}, got)

	_, err = f.engine.GetVisibleItems(f.ctx, models.CategoryQuestionComment, Viewer{}, 10, 0)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = f.engine.GetVisibleTree(f.ctx, second, Viewer{ID: bobID})
	assert.ErrorIs(t, err, ErrNotFound, "removed root content")
}

func TestEngine_CreateCommentRules(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxCommentDepth = 3
	f := newFixture(t, opts)
	q := f.item(models.CategoryQuestion, aliceID)
	post := f.item(models.CategoryPost, aliceID)

	_, err := f.engine.CreateComment(f.ctx, bobID, post, "hi", false)
	assert.ErrorIs(t, err, ErrInvalidReference, "posts have no thread")

	_, err = f.engine.CreateComment(f.ctx, bobID, models.CommentRef(999), "hi", false)
	assert.ErrorIs(t, err, ErrInvalidReference)

	_, err = f.engine.CreateComment(f.ctx, bobID, models.RootRef(models.CategoryQuestion, 999), "hi", false)
	assert.ErrorIs(t, err, ErrInvalidReference)

	_, err = f.engine.CreateComment(f.ctx, bobID, q, "   ", false)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = f.engine.CreateComment(f.ctx, 0, q, "hi", false)
	assert.ErrorIs(t, err, ErrForbidden)

	l0 := f.reply(bobID, q, false)
	l1 := f.reply(bobID, models.CommentRef(l0.ID), false)
	l2 := f.reply(bobID, models.CommentRef(l1.ID), false)
	assert.Equal(t, 2, l2.Depth)
	_, err = f.engine.CreateComment(f.ctx, bobID, models.CommentRef(l2.ID), "too deep", false)
	assert.ErrorIs(t, err, ErrInvalidReference)

	_, err = f.engine.Remove(f.ctx, modID, models.CategoryQuestionComment, l0.ID, "")
	require.NoError(t, err)
	_, err = f.engine.CreateComment(f.ctx, aliceID, models.CommentRef(l1.ID), "under removed", false)
	assert.ErrorIs(t, err, ErrInvalidReference)

	_, err = f.engine.Ban(f.ctx, modID, bobID, "abuse")
	require.NoError(t, err)
	_, err = f.engine.CreateComment(f.ctx, bobID, q, "hi", false)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestEngine_WarnEscalates(t *testing.T) {
	f := newFixture(t, DefaultOptions())

	for i := 1; i <= 3; i++ {
		res, err := f.engine.Warn(f.ctx, modID, bobID, "spam")
		require.NoError(t, err)
		assert.EqualValues(t, i, res.InWindow)
		assert.Equal(t, i == 3, res.Banned)
		f.now = f.now.Add(24 * time.Hour)
	}

	ban, err := f.engine.BanStatus(f.ctx, bobID, bobID)
	require.NoError(t, err)
	require.NotNil(t, ban)

	assert.Equal(t, []int16{
		models.NotifyTypeWarning,
		models.NotifyTypeWarning,
		models.NotifyTypeWarning,
		models.NotifyTypeBan,
	}, f.notifier.types())

	n, err := f.engine.WarningsInWindow(f.ctx, bobID, bobID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	f.now = f.now.Add(31 * 24 * time.Hour)
	n, err = f.engine.WarningsInWindow(f.ctx, modID, bobID)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = f.engine.WarningsInWindow(f.ctx, aliceID, bobID)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestEngine_WarnWithoutAutoBan(t *testing.T) {
	opts := DefaultOptions()
	opts.AutoBan = false
	f := newFixture(t, opts)

	for i := 0; i < 5; i++ {
		res, err := f.engine.Warn(f.ctx, modID, bobID, "spam")
		require.NoError(t, err)
		assert.False(t, res.Banned)
	}
	ban, err := f.engine.BanStatus(f.ctx, modID, bobID)
	require.NoError(t, err)
	assert.Nil(t, ban)
}

func TestEngine_SanctionRules(t *testing.T) {
	f := newFixture(t, DefaultOptions())

	_, err := f.engine.Warn(f.ctx, aliceID, bobID, "spam")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.engine.Warn(f.ctx, modID, adminID, "spam")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.engine.Warn(f.ctx, modID, 999, "spam")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.engine.Warn(f.ctx, modID, bobID, " ")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	outcome, err := f.engine.Ban(f.ctx, modID, bobID, "abuse")
	require.NoError(t, err)
	assert.Equal(t, OutcomeBanned, outcome)
	outcome, err = f.engine.Ban(f.ctx, adminID, bobID, "abuse")
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnchanged, outcome)

	outcome, err = f.engine.Unban(f.ctx, modID, bobID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnbanned, outcome)
	outcome, err = f.engine.Unban(f.ctx, modID, bobID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnchanged, outcome)
}

func TestEngine_NewWarnings(t *testing.T) {
	f := newFixture(t, DefaultOptions())

	_, err := f.engine.Warn(f.ctx, modID, bobID, "before login")
	require.NoError(t, err)
	f.now = f.now.Add(time.Hour)
	require.NoError(t, f.users.SetLastLogin(f.ctx, bobID, f.now))
	f.now = f.now.Add(time.Hour)
	res, err := f.engine.Warn(f.ctx, modID, bobID, "after login")
	require.NoError(t, err)

	fresh, err := f.engine.NewWarnings(f.ctx, bobID, bobID)
	require.NoError(t, err)
	require.Len(t, fresh, 1)
	assert.Equal(t, "after login", fresh[0].Reason)

	_, err = f.engine.MarkWarningRead(f.ctx, aliceID, res.Warning.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	outcome, err := f.engine.MarkWarningRead(f.ctx, bobID, res.Warning.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeRead, outcome)
	outcome, err = f.engine.MarkWarningRead(f.ctx, bobID, res.Warning.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnchanged, outcome)

	fresh, err = f.engine.NewWarnings(f.ctx, bobID, bobID)
	require.NoError(t, err)
	assert.Empty(t, fresh)

	all, err := f.engine.ListWarnings(f.ctx, bobID, bobID)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestEngine_AppealAccepted(t *testing.T) {
	f := newFixture(t, DefaultOptions())

	_, _, err := f.engine.SubmitAppeal(f.ctx, bobID, "let me back")
	assert.ErrorIs(t, err, ErrForbidden, "not banned")

	_, err = f.engine.Ban(f.ctx, modID, bobID, "abuse")
	require.NoError(t, err)

	appeal, outcome, err := f.engine.SubmitAppeal(f.ctx, bobID, "let me back")
	require.NoError(t, err)
	assert.Equal(t, OutcomeSubmitted, outcome)

	again, outcome, err := f.engine.SubmitAppeal(f.ctx, bobID, "please")
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnchanged, outcome)
	assert.Equal(t, appeal.ID, again.ID)

	_, _, err = f.engine.RespondAppeal(f.ctx, aliceID, appeal.ID, "no", models.DecisionAccepted)
	assert.ErrorIs(t, err, ErrForbidden)
	_, _, err = f.engine.RespondAppeal(f.ctx, modID, appeal.ID, "no", models.Decision("maybe"))
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, _, err = f.engine.RespondAppeal(f.ctx, modID, 999, "no", models.DecisionAccepted)
	assert.ErrorIs(t, err, ErrNotFound)

	answered, outcome, err := f.engine.RespondAppeal(f.ctx, modID, appeal.ID, "welcome back", models.DecisionAccepted)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAnswered, outcome)
	assert.Equal(t, models.AppealAccepted, answered.Status)

	ban, err := f.engine.BanStatus(f.ctx, bobID, bobID)
	require.NoError(t, err)
	assert.Nil(t, ban)

	appeals, err := f.engine.ListAppeals(f.ctx, bobID, bobID)
	require.NoError(t, err)
	require.Len(t, appeals, 1)
	require.Len(t, appeals[0].Responses, 1)
	assert.Equal(t, models.DecisionAccepted, appeals[0].Responses[0].Decision)

	_, outcome, err = f.engine.RespondAppeal(f.ctx, adminID, appeal.ID, "late", models.DecisionRejected)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnchanged, outcome)

	assert.Contains(t, f.notifier.types(), models.NotifyTypeAppealResponse)
}

func TestEngine_AppealRejectedKeepsBan(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	_, err := f.engine.Ban(f.ctx, modID, bobID, "abuse")
	require.NoError(t, err)
	appeal, _, err := f.engine.SubmitAppeal(f.ctx, bobID, "let me back")
	require.NoError(t, err)

	answered, _, err := f.engine.RespondAppeal(f.ctx, modID, appeal.ID, "no", models.DecisionRejected)
	require.NoError(t, err)
	assert.Equal(t, models.AppealRejected, answered.Status)

	ban, err := f.engine.BanStatus(f.ctx, modID, bobID)
	require.NoError(t, err)
	assert.NotNil(t, ban)

	second, outcome, err := f.engine.SubmitAppeal(f.ctx, bobID, "one more try")
	require.NoError(t, err)
	assert.Equal(t, OutcomeSubmitted, outcome)
	assert.NotEqual(t, appeal.ID, second.ID)
}

func TestEngine_NotificationFailureIsNotPropagated(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	f.notifier.err = errors.New("mail server down")

	res, err := f.engine.Warn(f.ctx, modID, bobID, "spam")
	require.NoError(t, err)
	assert.NotNil(t, res.Warning)
	assert.Len(t, f.notifier.sent, 1)
}

func TestEngine_Roles(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	alicePost := f.item(models.CategoryPost, aliceID)

	_, err := f.engine.GrantRole(f.ctx, modID, bobID, models.RoleModerator)
	assert.ErrorIs(t, err, ErrForbidden)

	outcome, err := f.engine.GrantRole(f.ctx, adminID, bobID, models.RoleModerator)
	require.NoError(t, err)
	assert.Equal(t, OutcomeGranted, outcome)
	outcome, err = f.engine.GrantRole(f.ctx, adminID, bobID, models.RoleModerator)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnchanged, outcome)

	res, err := f.engine.Remove(f.ctx, bobID, models.CategoryPost, alicePost.ID(), "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeSoftDeleted, res.Outcome)

	list, err := f.engine.ListRoles(f.ctx, bobID)
	require.NoError(t, err)
	assert.Len(t, list, 4)

	outcome, err = f.engine.RevokeRole(f.ctx, adminID, bobID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeRevoked, outcome)
	outcome, err = f.engine.GrantRole(f.ctx, adminID, bobID, models.RoleRegular)
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnchanged, outcome)

	_, err = f.engine.GrantRole(f.ctx, adminID, 999, models.RoleAdmin)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOptionsFromConfigDefaults(t *testing.T) {
	opts := DefaultOptions()
	assert.True(t, opts.AutoBan)
	assert.Equal(t, 3, opts.WarningThreshold)
	assert.Equal(t, 30*24*time.Hour, opts.WarningWindow)
	assert.Equal(t, 10, opts.MaxCommentDepth)
	assert.Equal(t, "Anonymous", opts.AnonymousName)
}

func TestEngine_UnresolvedOwnerRoleFailsClosed(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	q := f.item(models.CategoryQuestion, adminID)
	f.engine.roles = failingResolver{next: f.engine.roles, fail: adminID}

	res, err := f.engine.Remove(f.ctx, modID, models.CategoryQuestion, q.ID(), "spam")
	assert.ErrorIs(t, err, errRoleLookup)
	assert.Empty(t, res.Outcome)
	removal, err := f.ledger.GetRemoval(f.ctx, models.CategoryQuestion, q.ID())
	require.NoError(t, err)
	assert.Nil(t, removal)

	_, err = f.engine.Report(f.ctx, bobID, models.CategoryQuestion, q.ID(), "spam")
	assert.ErrorIs(t, err, errRoleLookup)

	outcome, err := f.engine.Ban(f.ctx, modID, adminID, "abuse")
	assert.ErrorIs(t, err, errRoleLookup)
	assert.Empty(t, outcome)
	ban, err := f.engine.stores.Sanctions.GetBan(f.ctx, adminID)
	require.NoError(t, err)
	assert.Nil(t, ban)

	_, err = f.engine.Warn(f.ctx, modID, adminID, "abuse")
	assert.ErrorIs(t, err, errRoleLookup)
}

func TestEngine_AnonymousRootContent(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	q := f.anonymousItem(models.CategoryQuestion, ownerID)
	f.item(models.CategoryQuestion, aliceID)

	byID := func(entries []Entry) map[int64]Entry {
		out := make(map[int64]Entry, len(entries))
		for _, e := range entries {
			out[e.ID] = e
		}
		return out
	}

	for _, viewer := range []Viewer{{}, {ID: bobID}, {ID: modID}} {
		items, err := f.engine.GetVisibleItems(f.ctx, models.CategoryQuestion, viewer, 10, 0)
		require.NoError(t, err)
		require.Len(t, items, 2, "masking never drops content")
		got := byID(items)[q.ID()]
		assert.Equal(t, AnonymousAuthor, got.Author, "viewer %d", viewer.ID)
		assert.Zero(t, got.OwnerID)

		view, err := f.engine.GetVisibleTree(f.ctx, q, viewer)
		require.NoError(t, err)
		assert.Equal(t, AnonymousAuthor, view.Item.Author)
		assert.Zero(t, view.Item.OwnerID)
	}

	items, err := f.engine.GetVisibleItems(f.ctx, models.CategoryQuestion, Viewer{ID: ownerID}, 10, 0)
	require.NoError(t, err)
	own := byID(items)[q.ID()]
	assert.Equal(t, Author{ID: ownerID, Username: "owner"}, own.Author)
	assert.Equal(t, ownerID, own.OwnerID)

	view, err := f.engine.GetVisibleTree(f.ctx, q, Viewer{ID: ownerID})
	require.NoError(t, err)
	assert.Equal(t, ownerID, view.Item.Author.ID)
	assert.Equal(t, "owner", view.Item.Author.Username)
}

func TestEngine_FailedCascadeRollsBack(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	q := f.item(models.CategoryQuestion, ownerID)
	c1 := f.reply(aliceID, q, false)
	c2 := f.reply(bobID, models.CommentRef(c1.ID), false)

	// purging anonymity rows is the last step of both deletes
	require.NoError(t, f.conn.DB.Migrator().DropTable(&models.AnonymityFlag{}))

	_, err := f.engine.Remove(f.ctx, ownerID, models.CategoryQuestion, q.ID(), "")
	assert.ErrorIs(t, err, ErrTransaction)
	item, err := f.content.GetItem(f.ctx, models.CategoryQuestion, q.ID())
	require.NoError(t, err)
	assert.NotNil(t, item)
	left, err := f.content.ListComments(f.ctx, q)
	require.NoError(t, err)
	assert.Len(t, left, 2)

	_, err = f.engine.Remove(f.ctx, aliceID, models.CategoryQuestionComment, c1.ID, "")
	assert.ErrorIs(t, err, ErrTransaction)
	for _, id := range []int64{c1.ID, c2.ID} {
		c, err := f.content.GetComment(f.ctx, id)
		require.NoError(t, err)
		assert.NotNil(t, c, "comment %d", id)
	}
}

func TestEngine_ConcurrentSelfDeleteIsNotFound(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	q := f.item(models.CategoryDiscussion, ownerID)
	stale, err := f.engine.loadTarget(f.ctx, models.CategoryDiscussion, q.ID())
	require.NoError(t, err)

	res, err := f.engine.Remove(f.ctx, ownerID, models.CategoryDiscussion, q.ID(), "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeHardDeleted, res.Outcome)

	// the losing call already resolved its target before the winner committed
	_, err = f.engine.hardDelete(f.ctx, stale)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.engine.Remove(f.ctx, ownerID, models.CategoryDiscussion, q.ID(), "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEngine_PostTreeIsEmpty(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	post := f.item(models.CategoryPost, aliceID)

	view, err := f.engine.GetVisibleTree(f.ctx, post, Viewer{})
	require.NoError(t, err)
	assert.Equal(t, post.ID(), view.Item.ID)
	assert.Equal(t, "alice", view.Item.Author.Username)
	assert.Empty(t, view.Roots)
	assert.NotNil(t, view.Roots)

	_, err = f.engine.Remove(f.ctx, modID, models.CategoryPost, post.ID(), "")
	require.NoError(t, err)
	_, err = f.engine.GetVisibleTree(f.ctx, post, Viewer{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEngine_Notifications(t *testing.T) {
	f := newFixture(t, DefaultOptions())
	f.engine.notifier = notify.NewNotifier(f.notices)

	_, err := f.engine.Warn(f.ctx, modID, bobID, "off topic")
	require.NoError(t, err)
	f.tick()
	_, err = f.engine.Ban(f.ctx, modID, bobID, "spam")
	require.NoError(t, err)

	notices, err := f.engine.Notifications(f.ctx, bobID, 0)
	require.NoError(t, err)
	require.Len(t, notices, 2)
	assert.Equal(t, "ban", notices[0].Type, "newest first")
	assert.Equal(t, "warning", notices[1].Type)
	assert.Equal(t, modID, notices[1].SrcID)
	assert.Contains(t, string(notices[1].Payload), "off topic")

	notices, err = f.engine.Notifications(f.ctx, bobID, 1)
	require.NoError(t, err)
	assert.Len(t, notices, 1)

	notices, err = f.engine.Notifications(f.ctx, aliceID, 0)
	require.NoError(t, err)
	assert.Empty(t, notices)

	_, err = f.engine.Notifications(f.ctx, 0, 0)
	assert.ErrorIs(t, err, ErrForbidden)
}
