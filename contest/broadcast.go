/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package contest

// Coordinator fans updates out to the open sessions of a Registry.
type Coordinator struct {
	registry *Registry
	logf     func(format string, args ...any)
}

func NewCoordinator(registry *Registry, logf func(format string, args ...any)) *Coordinator {
	if logf == nil {
		logf = func(string, ...any) {}
	}

	return &Coordinator{registry: registry, logf: logf}
}

// LeaderboardRecipients is every open session not on except.
func (c *Coordinator) LeaderboardRecipients(except Conn) []Session {
	var out []Session
	c.registry.ForEachOpen(func(s Session) {
		if except != nil && s.Conn == except {
			return
		}
		out = append(out, s)
	})

	return out
}

// QuestionRecipients is every open session not on except whose current
// question is questionID.
func (c *Coordinator) QuestionRecipients(questionID int64, except Conn) []Session {
	var out []Session
	c.registry.ForEachOpen(func(s Session) {
		if except != nil && s.Conn == except {
			return
		}
		if s.CurrentQuestion() != questionID {
			return
		}
		out = append(out, s)
	})

	return out
}

// Leaderboard sends board to every open session except the originator and
// returns how many sends succeeded.
func (c *Coordinator) Leaderboard(board []LeaderboardEntry, except Conn) int {
	msg := LeaderboardUpdate{Leaderboard: board}

	sent := 0
	for _, s := range c.LeaderboardRecipients(except) {
		if err := s.Conn.Send(msg); err != nil {
			c.logf("BCAST: Leaderboard to %s (%s) dropped: %v", s.Identity, s.ID, err)
			broadcastsDropped.WithLabelValues("leaderboard").Inc()
			continue
		}
		sent++
	}

	return sent
}

// QuestionUpdate sends each session still on questionID its own view of
// that question, built by view from the recipient's hint state. Recipients
// whose view cannot be built are skipped.
func (c *Coordinator) QuestionUpdate(questionID int64, except Conn, view func(Session) (QuestionView, error)) int {
	sent := 0
	for _, s := range c.QuestionRecipients(questionID, except) {
		v, err := view(s)
		if err != nil {
			c.logf("BCAST: Question %d view for %s failed: %v", questionID, s.Identity, err)
			broadcastsDropped.WithLabelValues("question").Inc()
			continue
		}

		if err := s.Conn.Send(QuestionUpdate{UpdatedQuestion: v}); err != nil {
			c.logf("BCAST: Question %d to %s (%s) dropped: %v", questionID, s.Identity, s.ID, err)
			broadcastsDropped.WithLabelValues("question").Inc()
			continue
		}
		sent++
	}

	return sent
}
