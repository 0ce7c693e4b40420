package workflow

import "sync"

// Variant is the visual style of a notification.
type Variant string

const (
	VariantDefault     Variant = "default"
	VariantDestructive Variant = "destructive"
)

// Notification is a transient toast.
type Notification struct {
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Variant     Variant `json:"variant"`
}

// Notifier shows notifications to the operator.
type Notifier interface {
	Notify(n Notification)
}

// Navigator moves the operator to another view.
type Navigator interface {
	Navigate(path string)
}

type discard struct{}

func (discard) Notify(Notification) {}
func (discard) Navigate(string)     {}

// Outbox collects notifications and the last navigation target. The console
// server uses one per request to build its response.
type Outbox struct {
	mu       sync.Mutex
	notes    []Notification
	redirect string
}

// Notify implements Notifier.
func (o *Outbox) Notify(n Notification) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.notes = append(o.notes, n)
}

// Navigate implements Navigator.
func (o *Outbox) Navigate(path string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.redirect = path
}

// Notifications returns everything notified so far.
func (o *Outbox) Notifications() []Notification {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Notification, len(o.notes))
	copy(out, o.notes)
	return out
}

// Redirect returns the last navigation target, if any.
func (o *Outbox) Redirect() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.redirect
}

func notifierOrDiscard(n Notifier) Notifier {
	if n == nil {
		return discard{}
	}
	return n
}

func navigatorOrDiscard(n Navigator) Navigator {
	if n == nil {
		return discard{}
	}
	return n
}

func failure(title, description string) Notification {
	return Notification{Title: title, Description: description, Variant: VariantDestructive}
}

func success(title, description string) Notification {
	return Notification{Title: title, Description: description, Variant: VariantDefault}
}
