package models

const (
	CollectionUsers   = "users"
	CollectionGroups  = "groups"
	CollectionTasks   = "tasks"
	CollectionInvites = "invites"
)

var Collections = []string{CollectionUsers, CollectionGroups, CollectionTasks, CollectionInvites}

// Document is the whole persisted state. Collections are kept as ordered
// lists; ids are allocated from NextIDs and never reused.
type Document struct {
	Users   []User         `json:"users"`
	Groups  []Group        `json:"groups"`
	Tasks   []Task         `json:"tasks"`
	Invites []Invite       `json:"invites"`
	NextIDs map[string]int `json:"next_ids"`
}

func NewDocument() *Document {
	d := &Document{
		Users:   []User{},
		Groups:  []Group{},
		Tasks:   []Task{},
		Invites: []Invite{},
	}
	d.Normalize()
	return d
}

// Normalize fills in anything an older or hand-edited document may lack.
func (d *Document) Normalize() {
	if d.Users == nil {
		d.Users = []User{}
	}
	if d.Groups == nil {
		d.Groups = []Group{}
	}
	if d.Tasks == nil {
		d.Tasks = []Task{}
	}
	if d.Invites == nil {
		d.Invites = []Invite{}
	}
	if d.NextIDs == nil {
		d.NextIDs = make(map[string]int, len(Collections))
	}
	for _, c := range Collections {
		if d.NextIDs[c] < 1 {
			d.NextIDs[c] = 1
		}
	}
	for i := range d.Groups {
		if d.Groups[i].Members == nil {
			d.Groups[i].Members = []int{}
		}
	}
}

// NextID pops the current counter for collection and increments it.
func (d *Document) NextID(collection string) int {
	if d.NextIDs == nil {
		d.NextIDs = make(map[string]int)
	}
	id := d.NextIDs[collection]
	if id < 1 {
		id = 1
	}
	d.NextIDs[collection] = id + 1
	return id
}

func (d *Document) User(id int) *User {
	for i := range d.Users {
		if d.Users[i].ID == id {
			return &d.Users[i]
		}
	}
	return nil
}

func (d *Document) UserByEmail(email string) *User {
	for i := range d.Users {
		if d.Users[i].Email == email {
			return &d.Users[i]
		}
	}
	return nil
}

func (d *Document) Group(id int) *Group {
	for i := range d.Groups {
		if d.Groups[i].ID == id {
			return &d.Groups[i]
		}
	}
	return nil
}

func (d *Document) GroupByName(name string) *Group {
	for i := range d.Groups {
		if d.Groups[i].Name == name {
			return &d.Groups[i]
		}
	}
	return nil
}

func (d *Document) Task(id int) *Task {
	for i := range d.Tasks {
		if d.Tasks[i].ID == id {
			return &d.Tasks[i]
		}
	}
	return nil
}

func (d *Document) Invite(id int) *Invite {
	for i := range d.Invites {
		if d.Invites[i].ID == id {
			return &d.Invites[i]
		}
	}
	return nil
}

func (d *Document) InviteByToken(token string) *Invite {
	for i := range d.Invites {
		if d.Invites[i].Token == token {
			return &d.Invites[i]
		}
	}
	return nil
}

// DeleteGroup removes the group together with its tasks and invites.
func (d *Document) DeleteGroup(id int) bool {
	n := len(d.Groups)
	d.Groups = deleteWhere(d.Groups, func(g Group) bool { return g.ID == id })
	if len(d.Groups) == n {
		return false
	}
	d.Tasks = deleteWhere(d.Tasks, func(t Task) bool { return t.InGroup(id) })
	d.Invites = deleteWhere(d.Invites, func(i Invite) bool { return i.GroupID == id })
	return true
}

// DeleteUser removes the user, the groups they own, their memberships and
// their task assignments.
func (d *Document) DeleteUser(id int) bool {
	n := len(d.Users)
	d.Users = deleteWhere(d.Users, func(u User) bool { return u.ID == id })
	if len(d.Users) == n {
		return false
	}
	var owned []int
	for _, g := range d.Groups {
		if g.OwnerID == id {
			owned = append(owned, g.ID)
		}
	}
	for _, gid := range owned {
		d.DeleteGroup(gid)
	}
	for i := range d.Groups {
		d.Groups[i].RemoveMember(id)
	}
	for i := range d.Tasks {
		if d.Tasks[i].AssignedTo(id) {
			d.Tasks[i].AssignedToID = nil
		}
	}
	return true
}

func (d *Document) DeleteTask(id int) bool {
	n := len(d.Tasks)
	d.Tasks = deleteWhere(d.Tasks, func(t Task) bool { return t.ID == id })
	return len(d.Tasks) != n
}

func deleteWhere[T any](items []T, match func(T) bool) []T {
	out := items[:0]
	for _, it := range items {
		if !match(it) {
			out = append(out, it)
		}
	}
	return out
}
