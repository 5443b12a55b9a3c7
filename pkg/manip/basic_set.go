package manip

import (
	"sort"
	"sync"
)

type BasicSet struct {
	data map[string]struct{}
	lock *sync.Mutex
}

func NewBasicSet(values []string) (result *BasicSet) {
	result = &BasicSet{
		data: map[string]struct{}{},
		lock: &sync.Mutex{},
	}
	for _, value := range values {
		result.Add(value)
	}

	return
}

func NewEmptyBasicSet() (result *BasicSet) {
	return NewBasicSet(nil)
}

func (s *BasicSet) Add(value string) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.data[value] = struct{}{}
}

func (s *BasicSet) Remove(value string) {
	s.lock.Lock()
	defer s.lock.Unlock()

	delete(s.data, value)
}

func (s *BasicSet) Contains(value string) (result bool) {
	s.lock.Lock()
	defer s.lock.Unlock()

	_, result = s.data[value]
	return
}

func (s *BasicSet) Len() int {
	s.lock.Lock()
	defer s.lock.Unlock()

	return len(s.data)
}

func (s *BasicSet) Values() (result []string) {
	s.lock.Lock()
	defer s.lock.Unlock()

	result = make([]string, 0, len(s.data))
	for value := range s.data {
		result = append(result, value)
	}
	sort.Strings(result)

	return
}
