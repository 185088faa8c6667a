/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package contest runs a live quiz: it scores answers, gates hints, keeps
// track of connected participants and pushes leaderboard and question
// updates to them.
package contest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Seednode/contestbox/store"
)

const DefaultStoreTimeout = 5 * time.Second

type Options struct {
	Store store.Store

	// Ranking is optional.
	Ranking RankingCache

	HintUnlock    time.Duration
	StoreTimeout  time.Duration
	SystemAccount string

	// ContestEnd closes answers and hints once reached; zero means never.
	ContestEnd time.Time

	Now  func() time.Time
	Logf func(format string, args ...any)
}

// Controller executes inbound commands. Commands for different users and
// questions run in parallel; a user's progress and a question's points are
// each only ever read and written under that key's lock, user first.
type Controller struct {
	store     store.Store
	ranking   RankingCache
	tracker   HintTracker
	registry  *Registry
	broadcast *Coordinator

	users     *keyedMutex[string]
	questions *keyedMutex[int64]

	// announceMu orders leaderboard publication so a later ranking is never
	// delivered ahead of an earlier one.
	announceMu sync.Mutex

	// rankingMu serializes cache writes; rankingStale routes reads to the
	// store until a rewarm succeeds.
	rankingMu    sync.Mutex
	rankingStale atomic.Bool

	contestEnd    time.Time
	systemAccount string
	storeTimeout  time.Duration
	now           func() time.Time
	logf          func(format string, args ...any)
}

func New(opts Options) *Controller {
	c := &Controller{
		store:         opts.Store,
		ranking:       opts.Ranking,
		tracker:       HintTracker{UnlockDelay: opts.HintUnlock},
		registry:      NewRegistry(),
		users:         newKeyedMutex[string](),
		questions:     newKeyedMutex[int64](),
		contestEnd:    opts.ContestEnd,
		systemAccount: opts.SystemAccount,
		storeTimeout:  opts.StoreTimeout,
		now:           opts.Now,
		logf:          opts.Logf,
	}

	if c.storeTimeout <= 0 {
		c.storeTimeout = DefaultStoreTimeout
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.logf == nil {
		c.logf = func(string, ...any) {}
	}

	c.broadcast = NewCoordinator(c.registry, c.logf)

	return c
}

func (c *Controller) Registry() *Registry {
	return c.registry
}

// Handle decodes one raw message from conn and runs it. Failures are
// answered on conn; successful commands reply for themselves.
func (c *Controller) Handle(ctx context.Context, conn Conn, raw []byte) {
	command, err := c.dispatch(ctx, conn, raw)
	commandsHandled.WithLabelValues(commandLabel(command), outcomeOf(err)).Inc()

	if err != nil {
		if KindOf(err) == StoreUnavailable || KindOf(err) == 0 {
			c.logf("CONTEST: Command failed: %v", err)
		}
		c.send(conn, replyFor(err))
	}
}

func (c *Controller) dispatch(ctx context.Context, conn Conn, raw []byte) (string, error) {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return "", newError(MalformedRequest, "Invalid message format. Please send a JSON object with double-quoted keys.")
	}

	if req.Email == "" {
		return req.Command, newError(MalformedRequest, "Missing email parameter")
	}

	switch req.Command {
	case CommandConnect:
		_, err := c.Connect(ctx, conn, req.Email)
		return req.Command, err
	case CommandAnswer:
		if req.Answer == nil || req.Answer.ID == nil {
			return req.Command, newError(MalformedRequest, "Missing answer parameter")
		}
		text, ok := req.Answer.Text()
		if !ok {
			return req.Command, newError(MalformedRequest, "Missing answer parameter")
		}
		_, err := c.Answer(ctx, conn, req.Email, int64(*req.Answer.ID), text)
		return req.Command, err
	case CommandHint1:
		_, err := c.Hint(ctx, conn, req.Email, 1)
		return req.Command, err
	case CommandHint2:
		_, err := c.Hint(ctx, conn, req.Email, 2)
		return req.Command, err
	case "":
		return req.Command, newError(MalformedRequest, "Missing command parameter")
	default:
		return req.Command, newError(MalformedRequest, fmt.Sprintf("Unknown command %q", req.Command))
	}
}

// Disconnect forgets every session bound to conn.
func (c *Controller) Disconnect(conn Conn) {
	for _, identity := range c.registry.Drop(conn) {
		c.logf("CONTEST: %s disconnected", identity)
	}
}

// Close forgets all sessions.
func (c *Controller) Close() {
	c.registry.Reset()
}

func (c *Controller) send(conn Conn, v any) {
	if err := conn.Send(v); err != nil {
		c.logf("CONTEST: Reply dropped: %v", err)
	}
}

func (c *Controller) closed() bool {
	return !c.contestEnd.IsZero() && !c.now().Before(c.contestEnd)
}

// Connect registers conn for email, replies with the leaderboard and the
// user's current question, and tells everyone else the leaderboard.
func (c *Controller) Connect(ctx context.Context, conn Conn, email string) (ConnectReply, error) {
	user, question, err := c.connect(ctx, email)
	if err != nil {
		return ConnectReply{}, err
	}

	var reply ConnectReply
	err = c.announce(ctx, conn, func(board []LeaderboardEntry) {
		c.registry.Register(email, conn, user.Points, user.QuestionsAnswered)

		reply = ConnectReply{
			Leaderboard: board,
			Question:    question,
			TotalPoints: user.Points,
		}
		c.send(conn, reply)
	})
	if err != nil {
		return ConnectReply{}, err
	}

	c.logf("CONTEST: %s connected on question %d", email, user.CurrentQuestion())

	return reply, nil
}

func (c *Controller) connect(ctx context.Context, email string) (store.User, *QuestionView, error) {
	unlock := c.users.Lock(email)
	defer unlock()

	user, err := c.getUser(ctx, email)
	if err != nil {
		return store.User{}, nil, err
	}

	rec, _ := user.HintFor(user.CurrentQuestion())
	question, err := c.serveQuestion(ctx, user.CurrentQuestion(), rec)
	if err != nil {
		return store.User{}, nil, err
	}

	// Users provisioned after the cache was warmed join it here.
	c.record(ctx, user)

	return user, question, nil
}

// solve is the committed result of a correct answer.
type solve struct {
	user     store.User
	question store.Question
	reward   int64
}

var errIncorrect = errors.New("incorrect answer")

// Answer checks a submission for the user's current question. A correct
// answer is scored, the question decays, and both the leaderboard and the
// new question value are pushed to the other participants.
func (c *Controller) Answer(ctx context.Context, conn Conn, email string, questionID int64, submitted string) (any, error) {
	if c.closed() {
		return nil, newError(ContestClosed, "The contest has ended")
	}

	if _, ok := c.registry.Lookup(email); !ok {
		return nil, newError(InvalidState, "Connect before answering")
	}

	reply, solved, err := c.answer(ctx, email, questionID, submitted)
	if errors.Is(err, errIncorrect) {
		incorrect := IncorrectReply{AnswerStatus: StatusIncorrect}
		c.send(conn, incorrect)

		return incorrect, nil
	}
	if err != nil {
		return nil, err
	}

	correctAnswers.Inc()
	c.logf("CONTEST: %s solved question %d for %d points, question now worth %d",
		email, questionID, solved.reward, solved.question.Points)

	err = c.announce(ctx, conn, func(board []LeaderboardEntry) {
		reply.Leaderboard = board
		c.send(conn, reply)
	})

	c.publishQuestion(ctx, questionID, conn)

	if err != nil {
		return nil, err
	}

	return reply, nil
}

// announce reads the ranking, hands it to reply for the originating
// connection and sends it to every other session. Announcements run one at
// a time and each reads the ranking afresh.
func (c *Controller) announce(ctx context.Context, conn Conn, reply func([]LeaderboardEntry)) error {
	c.announceMu.Lock()
	defer c.announceMu.Unlock()

	board, err := c.Leaderboard(ctx)
	if err != nil {
		return err
	}

	reply(board)
	c.broadcast.Leaderboard(board, conn)

	return nil
}

// publishQuestion sends the current value of questionID to everyone still
// on it. It holds the question's lock and rereads the question, so updates
// for one question go out in commit order and carry its latest points.
func (c *Controller) publishQuestion(ctx context.Context, questionID int64, except Conn) {
	unlock := c.questions.Lock(questionID)
	defer unlock()

	if len(c.broadcast.QuestionRecipients(questionID, except)) == 0 {
		return
	}

	q, err := c.getQuestion(ctx, questionID)
	if err != nil {
		c.logf("BCAST: Question %d not published: %v", questionID, err)
		return
	}

	c.broadcast.QuestionUpdate(questionID, except, func(s Session) (QuestionView, error) {
		return c.viewFor(ctx, s.Identity, q)
	})
}

func (c *Controller) answer(ctx context.Context, email string, questionID int64, submitted string) (CorrectReply, solve, error) {
	unlock := c.users.Lock(email)
	defer unlock()

	user, err := c.getUser(ctx, email)
	if err != nil {
		return CorrectReply{}, solve{}, err
	}

	switch current := user.CurrentQuestion(); {
	case questionID < current:
		return CorrectReply{}, solve{}, newError(InvalidState, "Question already answered")
	case questionID > current:
		return CorrectReply{}, solve{}, newError(InvalidState, "Answer your current question first")
	}

	solved, err := c.score(ctx, user, questionID, submitted)
	if err != nil {
		return CorrectReply{}, solve{}, err
	}
	user = solved.user

	c.registry.UpdateSnapshot(email, user.Points, user.QuestionsAnswered)
	c.record(ctx, user)

	nextRec, _ := user.HintFor(user.CurrentQuestion())
	next, err := c.serveQuestion(ctx, user.CurrentQuestion(), nextRec)
	if err != nil {
		return CorrectReply{}, solve{}, err
	}

	return CorrectReply{
		AnswerStatus: StatusCorrect,
		Question:     next,
		TotalPoints:  user.Points,
	}, solved, nil
}

// score runs under the user's lock and takes the question's lock for the
// read-modify-write of its points. The question is written before the user
// so a failed user write can be undone on the question.
func (c *Controller) score(ctx context.Context, user store.User, questionID int64, submitted string) (solve, error) {
	unlock := c.questions.Lock(questionID)
	defer unlock()

	rec, known := user.HintFor(questionID)

	q, err := c.getQuestion(ctx, questionID)
	if KindOf(err) == NotFound {
		return solve{}, errIncorrect
	}
	if err != nil {
		return solve{}, err
	}

	if q.Answer != submitted {
		if !known {
			if _, err := c.updateUser(ctx, user.Email, store.UserDelta{Hint: &rec}); err != nil {
				return solve{}, err
			}
		}
		return solve{}, errIncorrect
	}

	reward := ComputeReward(q.Points, rec.Hint1Used, rec.Hint2Used)
	before := q.Points
	after := ComputeGlobalDecay(before, q.Original(), q.DecayFactor)

	if after != before {
		q, err = c.updateQuestion(ctx, questionID, store.QuestionDelta{Points: &after, ExpectPoints: &before})
		if err != nil {
			return solve{}, err
		}
	}

	expect := user.QuestionsAnswered
	delta := store.UserDelta{
		AddPoints:      reward,
		Answer:         &store.AnswerLogEntry{QuestionID: questionID, AnsweredAt: c.now()},
		ExpectAnswered: &expect,
	}
	if !known {
		delta.Hint = &rec
	}

	updated, err := c.updateUser(ctx, user.Email, delta)
	if err != nil {
		if after != before {
			_, rerr := c.updateQuestion(ctx, questionID, store.QuestionDelta{Points: &before, ExpectPoints: &after})
			if rerr != nil {
				c.logf("CONTEST: Restoring question %d to %d points failed: %v", questionID, before, rerr)
			}
		}
		return solve{}, err
	}

	return solve{user: updated, question: q, reward: reward}, nil
}

// Hint opens hint level on the user's current question. Points are not
// deducted here; the reply carries a preview and the deduction is applied
// when the question is answered.
func (c *Controller) Hint(ctx context.Context, conn Conn, email string, level int) (HintReply, error) {
	if c.closed() {
		return HintReply{}, newError(ContestClosed, "The contest has ended")
	}

	if _, ok := c.registry.Lookup(email); !ok {
		return HintReply{}, newError(InvalidState, "Connect before requesting hints")
	}

	reply, err := c.hint(ctx, email, level)
	if err != nil {
		return HintReply{}, err
	}

	c.send(conn, reply)

	return reply, nil
}

func (c *Controller) hint(ctx context.Context, email string, level int) (HintReply, error) {
	unlockUser := c.users.Lock(email)
	defer unlockUser()

	user, err := c.getUser(ctx, email)
	if err != nil {
		return HintReply{}, err
	}

	questionID := user.CurrentQuestion()

	unlockQuestion := c.questions.Lock(questionID)
	defer unlockQuestion()

	q, err := c.getQuestion(ctx, questionID)
	if KindOf(err) == NotFound {
		return HintReply{}, newError(NotFound, "Question not found for hints")
	}
	if err != nil {
		return HintReply{}, err
	}

	now := c.now()
	if !q.Visit.Visited {
		return HintReply{}, newError(InvalidState, "Hints are unavailable until the question has been opened")
	}
	if !c.tracker.Eligible(q, now) {
		left := c.tracker.Remaining(q, now).Round(time.Second)
		return HintReply{}, newError(HintLocked, fmt.Sprintf("Hints unlock in %s", left))
	}

	rec, _ := user.HintFor(questionID)
	preview, err := c.tracker.UseHint(level, &rec, q.Points)
	reopened := errors.Is(err, ErrHintAlreadyUsed)
	switch {
	case reopened:
		// Reopening a hint shows it again without another deduction.
	case errors.Is(err, ErrHintPrerequisite):
		return HintReply{}, newError(InvalidState, "You must use hint1 before using hint2")
	case err != nil:
		return HintReply{}, newError(MalformedRequest, err.Error())
	}

	hint := q.Hint1
	if level == 2 {
		hint = q.Hint2
	}
	if hint.Text == "" {
		return HintReply{}, newError(NotFound, fmt.Sprintf("No hint%d available for this question", level))
	}

	if !reopened {
		if !hint.Used {
			if _, err := c.updateQuestion(ctx, questionID, store.QuestionDelta{ConsumeHint: level}); err != nil {
				return HintReply{}, err
			}
		}
		if _, err := c.updateUser(ctx, email, store.UserDelta{Hint: &rec}); err != nil {
			return HintReply{}, err
		}
		c.logf("CONTEST: %s opened hint%d on question %d", email, level, questionID)
	}

	// The preview deducts hint 2 from the already reduced value, so with both
	// hints it can sit a point above what ComputeReward pays on the answer.
	reply := HintReply{Points: preview}
	if level == 1 {
		reply.Hint1 = hint.Text
	} else {
		reply.Hint2 = hint.Text
	}

	return reply, nil
}

// Leaderboard returns the current ranking, from the cache when it has one
// and is not stale.
func (c *Controller) Leaderboard(ctx context.Context) ([]LeaderboardEntry, error) {
	if c.ranking != nil && !c.rankingStale.Load() {
		cctx, cancel := context.WithTimeout(ctx, c.storeTimeout)
		users, err := c.ranking.Ranking(cctx)
		cancel()

		if err == nil && len(users) > 0 {
			return BuildLeaderboard(users, c.systemAccount), nil
		}
		if err != nil {
			c.logf("CONTEST: Ranking cache unavailable, reading store: %v", err)
		}
	}

	cctx, cancel := context.WithTimeout(ctx, c.storeTimeout)
	defer cancel()

	users, err := c.store.ListUsersByPointsDesc(cctx)
	if err != nil {
		return nil, unavailable(err)
	}

	if c.ranking != nil && c.rankingStale.Load() {
		c.rewarm(ctx)
	}

	return BuildLeaderboard(users, c.systemAccount), nil
}

// rewarm reloads a stale ranking cache from the store. The store is read
// under rankingMu, so a Record that lands after the read also lands after
// the warm.
func (c *Controller) rewarm(ctx context.Context) {
	c.rankingMu.Lock()
	defer c.rankingMu.Unlock()

	if !c.rankingStale.Load() {
		return
	}

	cctx, cancel := context.WithTimeout(ctx, c.storeTimeout)
	defer cancel()

	users, err := c.store.ListUsersByPointsDesc(cctx)
	if err != nil {
		c.logf("CONTEST: Ranking cache rewarm skipped: %v", err)
		return
	}

	if err := c.ranking.Warm(cctx, users); err != nil {
		c.logf("CONTEST: Ranking cache rewarm failed: %v", err)
		return
	}

	c.rankingStale.Store(false)
	c.logf("CONTEST: Ranking cache rewarmed with %d users", len(users))
}

// serveQuestion returns the view of questionID for a holder of rec and
// starts the question's hint clock if this is its first showing. A missing
// question means the user has finished and yields nil.
func (c *Controller) serveQuestion(ctx context.Context, questionID int64, rec store.HintRecord) (*QuestionView, error) {
	unlock := c.questions.Lock(questionID)
	defer unlock()

	q, err := c.getQuestion(ctx, questionID)
	if KindOf(err) == NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if c.tracker.RecordVisit(&q, c.now()) {
		if q, err = c.updateQuestion(ctx, questionID, store.QuestionDelta{Visit: &q.Visit}); err != nil {
			return nil, err
		}
	}

	v := viewOf(q, rec)

	return &v, nil
}

func (c *Controller) viewFor(ctx context.Context, email string, q store.Question) (QuestionView, error) {
	user, err := c.getUser(ctx, email)
	if err != nil {
		return QuestionView{}, err
	}

	rec, _ := user.HintFor(q.ID)

	return viewOf(q, rec), nil
}

func viewOf(q store.Question, rec store.HintRecord) QuestionView {
	return QuestionView{
		QuestionID: QuestionID(q.ID),
		ImageURL:   q.ImageURL,
		Points:     ComputeReward(q.Points, rec.Hint1Used, rec.Hint2Used),
	}
}

func (c *Controller) record(ctx context.Context, u store.User) {
	if c.ranking == nil {
		return
	}

	c.rankingMu.Lock()
	defer c.rankingMu.Unlock()

	cctx, cancel := context.WithTimeout(ctx, c.storeTimeout)
	defer cancel()

	if err := c.ranking.Record(cctx, u); err != nil {
		if !c.rankingStale.Swap(true) {
			rankingInvalidations.Inc()
		}
		c.logf("CONTEST: Ranking cache update for %s failed, reading store until rewarmed: %v", u.Email, err)
	}
}

func storeError(err error, notFound string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return &Error{Kind: NotFound, Message: notFound, Err: err}
	default:
		return unavailable(err)
	}
}

func (c *Controller) getUser(ctx context.Context, email string) (store.User, error) {
	ctx, cancel := context.WithTimeout(ctx, c.storeTimeout)
	defer cancel()

	u, err := c.store.GetUser(ctx, email)

	return u, storeError(err, "User not found")
}

func (c *Controller) updateUser(ctx context.Context, email string, delta store.UserDelta) (store.User, error) {
	ctx, cancel := context.WithTimeout(ctx, c.storeTimeout)
	defer cancel()

	u, err := c.store.UpdateUser(ctx, email, delta)

	return u, storeError(err, "User not found")
}

func (c *Controller) getQuestion(ctx context.Context, id int64) (store.Question, error) {
	ctx, cancel := context.WithTimeout(ctx, c.storeTimeout)
	defer cancel()

	q, err := c.store.GetQuestion(ctx, id)

	return q, storeError(err, "Question not found")
}

func (c *Controller) updateQuestion(ctx context.Context, id int64, delta store.QuestionDelta) (store.Question, error) {
	ctx, cancel := context.WithTimeout(ctx, c.storeTimeout)
	defer cancel()

	q, err := c.store.UpdateQuestion(ctx, id, delta)

	return q, storeError(err, "Question not found")
}
