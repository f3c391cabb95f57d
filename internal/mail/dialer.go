package mail

import "time"

// Dialer adapts Sender to the evaluator's Mailer interface: one connection
// per message, with the server and timeout resolved per action.
type Dialer struct{}

func (Dialer) Send(server string, timeout time.Duration, m *Message) error {
	s := &Sender{Addr: server, Timeout: timeout}
	return s.Send(m)
}
