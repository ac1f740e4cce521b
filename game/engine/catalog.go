package engine

// DefaultCatalog is the fixed set of paired items that seed every deck.
var DefaultCatalog = []Item{
	{Identity: "Arizona Cardinals", ImageRef: "https://content.sportslogos.net/logos/7/177/thumbs/kwth8f1cfa2sch5xhjjfaof90.gif"},
	{Identity: "Atlanta Falcons", ImageRef: "https://content.sportslogos.net/logos/7/173/thumbs/299.gif"},
	{Identity: "Baltimore Ravens", ImageRef: "https://content.sportslogos.net/logos/7/153/thumbs/318.gif"},
	{Identity: "Buffalo Bills", ImageRef: "https://content.sportslogos.net/logos/7/149/thumbs/n0fd1z6xmhigb0eej3323ebwq.gif"},
	{Identity: "Carolina Panthers", ImageRef: "https://content.sportslogos.net/logos/7/174/thumbs/f1wggq2k8ql88fe33jzhw641u.gif"},
	{Identity: "Chicago Bears", ImageRef: "https://content.sportslogos.net/logos/7/169/thumbs/364.gif"},
	{Identity: "Dallas Cowboys", ImageRef: "https://content.sportslogos.net/logos/7/165/thumbs/406.gif"},
	{Identity: "Green Bay Packers", ImageRef: "https://content.sportslogos.net/logos/7/171/thumbs/dcy03myfhffbki5d7il3.gif"},
}

// Catalog returns a copy of the default catalog
func Catalog() []Item {
	items := make([]Item, len(DefaultCatalog))
	copy(items, DefaultCatalog)
	return items
}

// catalogIndex maps identities to catalog items
func catalogIndex() map[string]Item {
	index := make(map[string]Item, len(DefaultCatalog))
	for _, item := range DefaultCatalog {
		index[item.Identity] = item
	}
	return index
}
