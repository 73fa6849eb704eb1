package sharedutil

import (
	"github.com/tunecrate/tunecrate/backend/catalogapi"
)

func FilterSlice[T any](ss []T, test func(T) bool) []T {
	if ss == nil {
		return nil
	}
	result := make([]T, 0)
	for _, s := range ss {
		if test(s) {
			result = append(result, s)
		}
	}
	return result
}

func MapSlice[T any, U any](ts []T, f func(T) U) []U {
	if ts == nil {
		return nil
	}
	result := make([]U, len(ts))
	for i, t := range ts {
		result[i] = f(t)
	}
	return result
}

func ToSet[T comparable](ts []T) map[T]struct{} {
	set := make(map[T]struct{}, len(ts))
	for _, t := range ts {
		set[t] = struct{}{}
	}
	return set
}

func FindSongByID(id string, songs []*catalogapi.Song) *catalogapi.Song {
	for _, s := range songs {
		if id == s.ID {
			return s
		}
	}
	return nil
}

func FindLookupByID(id string, lookups []*catalogapi.Lookup) *catalogapi.Lookup {
	for _, l := range lookups {
		if id == l.ID {
			return l
		}
	}
	return nil
}

func SongIDOrEmptyStr(song *catalogapi.Song) string {
	if song == nil {
		return ""
	}
	return song.ID
}
