package services

import "sync"

// userLocks serializa el procesamiento de eventos por usuario: el
// leer-decidir-escribir sobre conv_state no es seguro entre entregas
// concurrentes del mismo usuario. Entregas de usuarios distintos no se bloquean
// entre sí.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*userLock
}

type userLock struct {
	mu    sync.Mutex
	refs  int
	key   string
	owner *userLocks
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[string]*userLock)}
}

// Acquire bloquea la llave y devuelve el release. El lock se descarta del mapa
// cuando nadie más lo espera, así el mapa no crece con cada usuario visto.
func (u *userLocks) Acquire(key string) (release func()) {
	u.mu.Lock()
	l, ok := u.locks[key]
	if !ok {
		l = &userLock{key: key, owner: u}
		u.locks[key] = l
	}
	l.refs++
	u.mu.Unlock()

	l.mu.Lock()
	return l.release
}

func (l *userLock) release() {
	l.mu.Unlock()
	l.owner.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(l.owner.locks, l.key)
	}
	l.owner.mu.Unlock()
}
