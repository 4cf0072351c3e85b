package randx

import (
	"math/rand/v2"
	"sync"
)

// LockedRand 는 math/rand/v2.Rand 를 goroutine-safe 하게 감싼 래퍼다.
// 아이콘 폴백처럼 동시 요청 경로에서 공유되는 난수 소스에 사용한다.
type LockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// New 는 래퍼를 생성한다. nil 소스는 고정 시드로 대체된다.
func New(r *rand.Rand) *LockedRand {
	if r == nil {
		r = rand.New(rand.NewPCG(0, 0))
	}
	return &LockedRand{r: r}
}

// IntN 는 [0, n) 범위의 난수를 반환한다.
func (l *LockedRand) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}
