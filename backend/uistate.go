package backend

import (
	"sync"
	"time"
)

type ToastType int

const (
	ToastInfo ToastType = iota
	ToastSuccess
	ToastError
)

func (t ToastType) String() string {
	switch t {
	case ToastSuccess:
		return "success"
	case ToastError:
		return "error"
	}
	return "info"
}

type ModalType int

const (
	ModalNone ModalType = iota
	ModalAdd
	ModalEdit
	ModalDelete
)

type Toast struct {
	Show    bool
	Message string
	Type    ToastType
}

// UIState is transient view state: sidebar and modal visibility, the
// song a modal is acting on, and the current toast banner.
type UIState struct {
	SidebarOpen    bool
	ModalOpen      bool
	ModalType      ModalType
	SelectedSongID string
	Toast          Toast
}

// UIStore holds transient view state. Toasts auto-dismiss after
// toastDuration; a new toast supersedes the pending dismissal of the
// previous one.
type UIStore struct {
	mutex         sync.Mutex
	state         UIState
	toastDuration time.Duration
	toastTimer    *time.Timer
	toastSeq      int

	onChange []func(UIState)
}

func NewUIStore() *UIStore {
	return &UIStore{
		state:         UIState{SidebarOpen: true},
		toastDuration: 3 * time.Second,
	}
}

func (u *UIStore) OnChange(cb func(UIState)) {
	u.onChange = append(u.onChange, cb)
}

func (u *UIStore) State() UIState {
	u.mutex.Lock()
	defer u.mutex.Unlock()
	return u.state
}

func (u *UIStore) ToggleSidebar() {
	u.mutex.Lock()
	u.state.SidebarOpen = !u.state.SidebarOpen
	snap := u.state
	u.mutex.Unlock()
	u.invokeOnChange(snap)
}

func (u *UIStore) OpenModal(t ModalType, songID string) {
	u.mutex.Lock()
	u.state.ModalOpen = true
	u.state.ModalType = t
	u.state.SelectedSongID = songID
	snap := u.state
	u.mutex.Unlock()
	u.invokeOnChange(snap)
}

func (u *UIStore) CloseModal() {
	u.mutex.Lock()
	u.state.ModalOpen = false
	u.state.ModalType = ModalNone
	u.state.SelectedSongID = ""
	snap := u.state
	u.mutex.Unlock()
	u.invokeOnChange(snap)
}

func (u *UIStore) ShowToast(message string, t ToastType) {
	u.mutex.Lock()
	u.state.Toast = Toast{Show: true, Message: message, Type: t}
	u.toastSeq++
	seq := u.toastSeq
	if u.toastTimer != nil {
		u.toastTimer.Stop()
	}
	u.toastTimer = time.AfterFunc(u.toastDuration, func() {
		u.hideToast(seq)
	})
	snap := u.state
	u.mutex.Unlock()
	u.invokeOnChange(snap)
}

func (u *UIStore) HideToast() {
	u.mutex.Lock()
	seq := u.toastSeq
	u.mutex.Unlock()
	u.hideToast(seq)
}

// hideToast is a no-op if another toast has been shown since seq.
func (u *UIStore) hideToast(seq int) {
	u.mutex.Lock()
	if seq != u.toastSeq || !u.state.Toast.Show {
		u.mutex.Unlock()
		return
	}
	u.state.Toast.Show = false
	snap := u.state
	u.mutex.Unlock()
	u.invokeOnChange(snap)
}

// SetToastDuration overrides the auto-dismiss delay.
func (u *UIStore) SetToastDuration(d time.Duration) {
	u.mutex.Lock()
	u.toastDuration = d
	u.mutex.Unlock()
}

func (u *UIStore) invokeOnChange(snap UIState) {
	for _, cb := range u.onChange {
		cb(snap)
	}
}
