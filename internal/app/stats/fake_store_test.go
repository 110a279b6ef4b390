package stats

import (
	"errors"
	"sort"
)

var errStoreDown = errors.New("store down")

type memberID struct {
	GroupID int64
	UserID  int64
}

type bucketID struct {
	GroupID     int64
	UserID      int64
	Granularity string
	PeriodKey   string
}

// fakeStore is an in-memory Repository with the same ordering guarantees as
// the SQL implementation. Per-method failure switches simulate transient
// store errors; queryCalls counts round trips so the batch-query claims can
// be asserted.
type fakeStore struct {
	members  map[memberID]Member
	buckets  map[bucketID]Bucket
	groups   []Group
	archived map[int64]bool

	failMembers bool
	failBuckets bool
	failGroups  bool

	queryCalls int
	saveAll    [][]Bucket
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		members:  map[memberID]Member{},
		buckets:  map[bucketID]Bucket{},
		archived: map[int64]bool{},
	}
}

func (f *fakeStore) GetMember(groupID, userID int64) (*Member, error) {
	f.queryCalls++
	if f.failMembers {
		return nil, errStoreDown
	}
	if m, ok := f.members[memberID{groupID, userID}]; ok {
		copied := m
		return &copied, nil
	}
	return nil, nil
}

func (f *fakeStore) UpsertMember(m *Member, countDelta, wordDelta int64) error {
	if f.failMembers {
		return errStoreDown
	}
	id := memberID{m.GroupID, m.UserID}
	existing, ok := f.members[id]
	if !ok {
		existing = Member{GroupID: m.GroupID, UserID: m.UserID}
	}
	existing.Nickname = m.Nickname
	existing.TotalCount += countDelta
	existing.TotalWords += wordDelta
	existing.ActiveDays = m.ActiveDays
	existing.ContinuousDays = m.ContinuousDays
	existing.LastSpeakingTime = m.LastSpeakingTime
	f.members[id] = existing
	return nil
}

func (f *fakeStore) GetBuckets(groupID, userID int64, granularity string, keys []string) ([]Bucket, error) {
	f.queryCalls++
	if f.failBuckets {
		return nil, errStoreDown
	}
	wanted := map[string]bool{}
	for _, k := range keys {
		wanted[k] = true
	}
	var out []Bucket
	for id, b := range f.buckets {
		if id.GroupID == groupID && id.UserID == userID && id.Granularity == granularity && wanted[id.PeriodKey] {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeStore) UpsertBucket(groupID, userID int64, granularity, key string, countDelta, wordDelta int64) error {
	if f.failBuckets {
		return errStoreDown
	}
	id := bucketID{groupID, userID, granularity, key}
	b, ok := f.buckets[id]
	if !ok {
		b = Bucket{GroupID: groupID, UserID: userID, Granularity: granularity, PeriodKey: key}
	}
	b.MessageCount += countDelta
	b.WordCount += wordDelta
	f.buckets[id] = b
	return nil
}

func (f *fakeStore) SaveBuckets(buckets []Bucket) error {
	if f.failBuckets {
		return errStoreDown
	}
	f.saveAll = append(f.saveAll, buckets)
	for _, b := range buckets {
		f.buckets[bucketID{b.GroupID, b.UserID, b.Granularity, b.PeriodKey}] = b
	}
	return nil
}

func (f *fakeStore) QueryBucketsByGroupAndKey(granularity string, groupID int64, key string) ([]Bucket, error) {
	f.queryCalls++
	if f.failBuckets {
		return nil, errStoreDown
	}
	var out []Bucket
	for id, b := range f.buckets {
		if id.GroupID == groupID && id.Granularity == granularity && id.PeriodKey == key {
			out = append(out, b)
		}
	}
	sortBucketsDesc(out)
	return out, nil
}

func (f *fakeStore) QueryBucketsByKeyAllGroups(granularity, key string) ([]Bucket, error) {
	f.queryCalls++
	if f.failBuckets {
		return nil, errStoreDown
	}
	var out []Bucket
	for id, b := range f.buckets {
		if id.Granularity == granularity && id.PeriodKey == key {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeStore) GetTopMembers(groupID int64, limit int) ([]Member, error) {
	f.queryCalls++
	if f.failMembers {
		return nil, errStoreDown
	}
	var out []Member
	for id, m := range f.members {
		if id.GroupID == groupID {
			out = append(out, m)
		}
	}
	sortMembersDesc(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) GetTopMembersAllGroups(limit int, excludedGroups []int64) ([]Member, error) {
	f.queryCalls++
	if f.failMembers {
		return nil, errStoreDown
	}
	excluded := map[int64]bool{}
	for _, id := range excludedGroups {
		excluded[id] = true
	}
	var out []Member
	for id, m := range f.members {
		if !excluded[id.GroupID] {
			out = append(out, m)
		}
	}
	sortMembersDesc(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) ListMembers(groupID int64) ([]Member, error) {
	f.queryCalls++
	if f.failMembers {
		return nil, errStoreDown
	}
	var out []Member
	for id, m := range f.members {
		if id.GroupID == groupID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeStore) ListMembersAllGroups(excludedGroups []int64) ([]Member, error) {
	f.queryCalls++
	if f.failMembers {
		return nil, errStoreDown
	}
	excluded := map[int64]bool{}
	for _, id := range excludedGroups {
		excluded[id] = true
	}
	var out []Member
	for id, m := range f.members {
		if !excluded[id.GroupID] {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeStore) ListGroups() ([]Group, error) {
	f.queryCalls++
	if f.failGroups {
		return nil, errStoreDown
	}
	out := append([]Group(nil), f.groups...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) GetGroup(groupID int64) (*Group, error) {
	f.queryCalls++
	if f.failGroups {
		return nil, errStoreDown
	}
	for _, g := range f.groups {
		if g.ID == groupID {
			copied := g
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) IsGroupArchived(groupID int64) (bool, error) {
	f.queryCalls++
	if f.failGroups {
		return false, errStoreDown
	}
	return f.archived[groupID], nil
}

func (f *fakeStore) ListArchivedGroupIDs() ([]int64, error) {
	f.queryCalls++
	if f.failGroups {
		return nil, errStoreDown
	}
	var ids []int64
	for id, archived := range f.archived {
		if archived {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func sortMembersDesc(members []Member) {
	sort.Slice(members, func(i, j int) bool {
		if members[i].TotalCount != members[j].TotalCount {
			return members[i].TotalCount > members[j].TotalCount
		}
		return members[i].UserID < members[j].UserID
	})
}

func sortBucketsDesc(buckets []Bucket) {
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].MessageCount != buckets[j].MessageCount {
			return buckets[i].MessageCount > buckets[j].MessageCount
		}
		return buckets[i].UserID < buckets[j].UserID
	})
}
