package text

import (
	"reflect"
	"testing"
)

func TestTokenize_Basic(t *testing.T) {
	got := Tokenize("Hello, World! 42")
	want := []string{"hello", "world", "42"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize = %v, want %v", got, want)
	}
}

func TestTokenize_Empty(t *testing.T) {
	if got := Tokenize(""); got != nil {
		t.Errorf("Tokenize(\"\") = %v, want nil", got)
	}
	if got := Tokenize("  ... !!"); len(got) != 0 {
		t.Errorf("Tokenize(punct) = %v, want empty", got)
	}
}

func TestTokenize_CaseFolding(t *testing.T) {
	got := Tokenize("BM25 Okapi SCORING")
	want := []string{"bm25", "okapi", "scoring"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize = %v, want %v", got, want)
	}
}

func TestTokenize_CJKBigrams(t *testing.T) {
	got := Tokenize("混合检索")
	want := []string{"混合", "合检", "检索"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize = %v, want %v", got, want)
	}
}

func TestTokenize_SingleCJKRune(t *testing.T) {
	got := Tokenize("猫")
	want := []string{"猫"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize = %v, want %v", got, want)
	}
}

func TestTokenize_MixedScripts(t *testing.T) {
	got := Tokenize("Redis向量检索engine")
	want := []string{"redis", "向量", "量检", "检索", "engine"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize = %v, want %v", got, want)
	}
}

func TestTokenize_NFKCWidthFolding(t *testing.T) {
	// Full-width latin and half-width katakana fold to their canonical forms.
	got := Tokenize("ＡＢＣ")
	want := []string{"abc"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize(full-width) = %v, want %v", got, want)
	}

	got = Tokenize("ｶﾀｶﾅ")
	want = []string{"カタ", "タカ", "カナ"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize(half-width kana) = %v, want %v", got, want)
	}
}

func TestTokenize_QuerySymmetry(t *testing.T) {
	// A query tokenized the same way as the indexed text must share terms.
	doc := Tokenize("Reciprocal Rank Fusion merges ranked lists")
	query := Tokenize("rank fusion")
	terms := make(map[string]bool, len(doc))
	for _, tok := range doc {
		terms[tok] = true
	}
	for _, tok := range query {
		if !terms[tok] {
			t.Errorf("query term %q not found in document terms %v", tok, doc)
		}
	}
}
