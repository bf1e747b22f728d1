package bot

// Per-chat conversation memory. Only the last maxHistory exchanges are kept.

func (b *Bot) resetSession(chatID int64) {
	b.sessions.Access(func(s map[int64]*session) {
		delete(s, chatID)
	})
}

func (b *Bot) remember(chatID int64, question, answer string) {
	b.sessions.Access(func(s map[int64]*session) {
		sess, ok := s[chatID]
		if !ok {
			sess = &session{}
			s[chatID] = sess
		}
		sess.history = append(sess.history, exchange{question: question, answer: answer})
		if len(sess.history) > maxHistory {
			sess.history = sess.history[len(sess.history)-maxHistory:]
		}
	})
}

func (b *Bot) historyOf(chatID int64) []exchange {
	var history []exchange
	b.sessions.RAccess(func(s map[int64]*session) {
		if sess, ok := s[chatID]; ok {
			history = append(history, sess.history...)
		}
	})
	return history
}

func (b *Bot) lastQuestion(chatID int64) string {
	var question string
	b.sessions.RAccess(func(s map[int64]*session) {
		if sess, ok := s[chatID]; ok && len(sess.history) > 0 {
			question = sess.history[len(sess.history)-1].question
		}
	})
	return question
}
