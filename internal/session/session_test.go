package session

import "testing"

func TestStoreReplaceAndDelete(t *testing.T) {
	t.Parallel()
	s := NewStore()

	if _, ok := s.Get(1); ok {
		t.Fatal("empty store should miss")
	}

	s.Set(1, &Session{Kind: KindProperty, Step: StepType})
	s.Set(1, &Session{Kind: KindNews, Step: StepNewsTitle})
	if s.Len() != 1 {
		t.Fatalf("len = %d, want 1", s.Len())
	}
	sess, _ := s.Get(1)
	if sess.Kind != KindNews {
		t.Fatalf("kind = %s, latest set must win", sess.Kind)
	}

	s.Delete(1)
	if _, ok := s.Get(1); ok {
		t.Fatal("deleted session still present")
	}
	s.Delete(1) // idempotent
}

func TestImagesOrder(t *testing.T) {
	t.Parallel()
	d := &PropertyDraft{
		MainImage:  ImageRef{FileID: "main"},
		Additional: []ImageRef{{FileID: "a"}, {FileID: "b"}},
	}
	imgs := d.Images()
	if len(imgs) != 3 || imgs[0].FileID != "main" || imgs[2].FileID != "b" {
		t.Fatalf("images = %+v", imgs)
	}
}

func TestImagesWithoutMain(t *testing.T) {
	t.Parallel()
	d := &PropertyDraft{Additional: []ImageRef{{URL: "u"}}}
	imgs := d.Images()
	if len(imgs) != 1 || imgs[0].URL != "u" {
		t.Fatalf("images = %+v", imgs)
	}
}

func TestImageRefEmpty(t *testing.T) {
	t.Parallel()
	if !(ImageRef{}).Empty() {
		t.Fatal("zero ref should be empty")
	}
	if (ImageRef{FileID: "x"}).Empty() || (ImageRef{URL: "u"}).Empty() {
		t.Fatal("non-zero ref should not be empty")
	}
}
