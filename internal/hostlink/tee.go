package hostlink

// Recorder 接收主机出站行副本，必须非阻塞
type Recorder interface {
	Record(line []byte)
}

// Tee 写往主机的每一行同时交给各 Recorder，写失败的行也会记录
type Tee struct {
	Link
	recs []Recorder
}

// NewTee 忽略 nil；没有 Recorder 时直接返回原链路
func NewTee(l Link, recs ...Recorder) Link {
	var keep []Recorder
	for _, r := range recs {
		if r != nil {
			keep = append(keep, r)
		}
	}
	if len(keep) == 0 {
		return l
	}
	return &Tee{Link: l, recs: keep}
}

func (t *Tee) WriteLine(p []byte) error {
	for _, r := range t.recs {
		r.Record(p)
	}
	return t.Link.WriteLine(p)
}
