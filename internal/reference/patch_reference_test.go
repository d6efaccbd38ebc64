package reference_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"vbranch.dev/vbranch/internal/reference"
	"vbranch.dev/vbranch/internal/testhelper"
)

func TestRemoteReference(t *testing.T) {
	ref := reference.PatchReference{
		Target: reference.ReferenceTarget{Kind: reference.TargetChange, ID: "change-123"},
		Name:   "base-branch-improvements",
	}

	require.Equal(t, "refs/remotes/origin/base-branch-improvements", ref.RemoteReference("origin"))
	require.Equal(t, "refs/remotes/fork/base-branch-improvements", ref.RemoteReference("fork"))
}

func TestPushed(t *testing.T) {
	repo := testhelper.NewRepo(t)
	commit := testhelper.CommitFiles(t, repo, nil, "initial", map[string]string{"foo.txt": "bar"})

	ref := reference.PatchReference{
		Target: reference.ReferenceTarget{Kind: reference.TargetCommit, ID: commit.Hash.String()},
		Name:   "feature",
	}

	require.False(t, ref.Pushed(repo, "origin"))

	require.NoError(t, repo.SetRef("refs/remotes/origin/feature", commit.Hash))
	require.True(t, ref.Pushed(repo, "origin"))
	require.False(t, ref.Pushed(repo, "fork"))
}

func TestReferenceTargetJSON(t *testing.T) {
	t.Run("commit target", func(t *testing.T) {
		target := reference.ReferenceTarget{Kind: reference.TargetCommit, ID: "abc123"}

		data, err := json.Marshal(target)
		require.NoError(t, err)
		require.JSONEq(t, `{"type": "commitId", "subject": "abc123"}`, string(data))

		var decoded reference.ReferenceTarget
		require.NoError(t, json.Unmarshal(data, &decoded))
		require.Equal(t, target, decoded)
	})

	t.Run("change target", func(t *testing.T) {
		target := reference.ReferenceTarget{Kind: reference.TargetChange, ID: "change-1"}

		data, err := json.Marshal(target)
		require.NoError(t, err)
		require.JSONEq(t, `{"type": "changeId", "subject": "change-1"}`, string(data))

		var decoded reference.ReferenceTarget
		require.NoError(t, json.Unmarshal(data, &decoded))
		require.Equal(t, target, decoded)
	})

	t.Run("unknown type is rejected", func(t *testing.T) {
		var decoded reference.ReferenceTarget
		require.Error(t, json.Unmarshal([]byte(`{"type": "tagId", "subject": "x"}`), &decoded))
	})
}
