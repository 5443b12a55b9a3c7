package manip

import (
	"regexp"
)

type RegexpSet struct {
	res []*regexp.Regexp
}

func NewRegexpSet(values []*regexp.Regexp) (result *RegexpSet) {
	return &RegexpSet{res: values}
}

func NewRegexpSetFromStringsMustCompile(values []string) (result *RegexpSet) {
	res := make([]*regexp.Regexp, len(values))
	for i, value := range values {
		res[i] = regexp.MustCompile(value)
	}

	return &RegexpSet{res: res}
}

func (r *RegexpSet) Add(re *regexp.Regexp) {
	r.res = append(r.res, re)
}

func (r *RegexpSet) MatchAny(input string) (result bool) {
	for _, re := range r.res {
		if re.MatchString(input) {
			return true
		}
	}

	return false
}

func (r *RegexpSet) FirstMatchingRe(input string) (result *regexp.Regexp) {
	for _, re := range r.res {
		if re.MatchString(input) {
			return re
		}
	}

	return
}

func (r *RegexpSet) ReValues() []*regexp.Regexp {
	return r.res
}
