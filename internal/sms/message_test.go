package sms

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const testClientURL = "https://choiceview.com/secure.html"

func TestClientLink_ReplacesQuery(t *testing.T) {
	link, err := ClientLink("https://choiceview.com/secure.html?old=1", "+17202950840")
	require.NoError(t, err)
	require.Equal(t, "https://choiceview.com/secure.html?phone=7202950840", link)
}

func TestClientLink_RejectsRelative(t *testing.T) {
	_, err := ClientLink("secure.html", "+17202950840")
	require.Error(t, err)
}

func TestComposeInvitation(t *testing.T) {
	link := "https://choiceview.com/secure.html?phone=7202950840"
	cases := []struct {
		name    string
		message string
		want    string
	}{
		{"blank", "", "Tap this link to start ChoiceView: " + link},
		{"whitespace", "   ", "Tap this link to start ChoiceView: " + link},
		{"plain text gets link", "Hello.", "Hello. Tap this link to start ChoiceView: " + link},
		{"already linked", "Go to " + link, "Go to " + link},
		{"inline marker", "Open https://example.com/cv?phone=", "Open https://example.com/cv?phone="},
		{"fragment elsewhere", "phone=7202950840 is yours", "phone=7202950840 is yours"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ComposeInvitation(tc.message, testClientURL, "+17202950840")
			require.True(t, ok)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestComposeInvitation_Idempotent(t *testing.T) {
	for _, msg := range []string{"", "Hello.", "Use https://x.example/cv?phone=", "Link: phone=7202950840"} {
		once, ok := ComposeInvitation(msg, testClientURL, "+17202950840")
		require.True(t, ok)
		twice, ok := ComposeInvitation(once, testClientURL, "+17202950840")
		require.True(t, ok)
		require.Equal(t, once, twice, msg)
	}
}

func TestComposeInvitation_BadClientURL(t *testing.T) {
	_, ok := ComposeInvitation("", "::not a url", "+17202950840")
	require.False(t, ok)

	_, ok = ComposeInvitation("Hello.", "relative/path", "+17202950840")
	require.False(t, ok)

	got, ok := ComposeInvitation("Start here ?phone=", "relative/path", "+17202950840")
	require.True(t, ok)
	require.Equal(t, "Start here ?phone=", got)
}

func TestFinalizeBody(t *testing.T) {
	require.Equal(t, "Open https://x.example/cv?phone=7202950840", FinalizeBody("Open https://x.example/cv?phone=", "+17202950840"))
	require.Equal(t, "unchanged", FinalizeBody("unchanged", "+17202950840"))

	composed, ok := ComposeInvitation("Open https://x.example/cv?phone=", testClientURL, "+17202950840")
	require.True(t, ok)
	final := FinalizeBody(composed, "+17202950840")
	require.Equal(t, "Open https://x.example/cv?phone=7202950840", final)
	require.Equal(t, final, FinalizeBody(final, "+17202950840"))
}

func TestIsMobile(t *testing.T) {
	require.True(t, IsMobile("mobile"))
	require.True(t, IsMobile("MOBILE"))
	require.False(t, IsMobile("landline"))
	require.False(t, IsMobile(""))
}
