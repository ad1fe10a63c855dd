package cmd

import (
	"fmt"
	"os"
)

// Completion outputs shell completion scripts
func Completion(shell string) {
	switch shell {
	case "bash":
		fmt.Print(bashCompletion)
	case "zsh":
		fmt.Print(zshCompletion)
	case "fish":
		fmt.Print(fishCompletion)
	default:
		fmt.Fprintf(os.Stderr, "Unknown shell: %s\nSupported: bash, zsh, fish\n", shell)
		os.Exit(1)
	}
}

const bashCompletion = `_passvault() {
    local cur prev words cword
    _init_completion || return

    local commands="init set get rm ls status serve sync diff passwd compact keyring help completion"

    if [[ $cword -eq 1 ]]; then
        COMPREPLY=($(compgen -W "$commands" -- "$cur"))
        return
    fi

    local cmd="${words[1]}"
    case "$cmd" in
        set)
            if [[ "$cur" == -* ]]; then
                COMPREPLY=($(compgen -W "-stdin" -- "$cur"))
            else
                COMPREPLY=($(compgen -W "$(passvault ls 2>/dev/null)" -- "$cur"))
            fi
            ;;
        get|rm)
            # Complete with entry names from vault
            COMPREPLY=($(compgen -W "$(passvault ls 2>/dev/null)" -- "$cur"))
            ;;
        serve)
            COMPREPLY=($(compgen -W "-host -port" -- "$cur"))
            ;;
        sync)
            COMPREPLY=($(compgen -W "-host -port -remote-password --keep-local --use-remote --abort" -- "$cur"))
            ;;
        diff)
            COMPREPLY=($(compgen -W "-host -port -remote-password -values" -- "$cur"))
            ;;
        keyring)
            COMPREPLY=($(compgen -W "save delete status" -- "$cur"))
            ;;
        help)
            COMPREPLY=($(compgen -W "$commands" -- "$cur"))
            ;;
        completion)
            COMPREPLY=($(compgen -W "bash zsh fish" -- "$cur"))
            ;;
    esac
}

complete -F _passvault passvault
`

const zshCompletion = `#compdef passvault

_passvault() {
    local -a commands
    commands=(
        'init:Create a new vault'
        'set:Store an entry'
        'get:Print an entry'
        'rm:Remove entries'
        'ls:List entry names'
        'status:Show vault metadata'
        'serve:Serve the vault to sync peers'
        'sync:Merge a peer vault into the local vault'
        'diff:Compare the local vault with a peer vault'
        'passwd:Change master password'
        'compact:Compact vault to reclaim disk space'
        'keyring:Manage password in OS keyring'
        'help:Show help for a command'
        'completion:Generate shell completions'
    )

    _arguments -C \
        '1: :->command' \
        '*: :->args'

    case "$state" in
        command)
            _describe -t commands 'passvault commands' commands
            ;;
        args)
            case "${words[2]}" in
                set)
                    _arguments \
                        '-stdin[Read the value from stdin]' \
                        '1:entry:_passvault_entries'
                    ;;
                get|rm)
                    _arguments '*:entry:_passvault_entries'
                    ;;
                serve)
                    _arguments \
                        '-host[Address to listen on]:host' \
                        '-port[Port to listen on]:port'
                    ;;
                sync)
                    _arguments \
                        '-host[Peer host]:host' \
                        '-port[Peer port]:port' \
                        '-remote-password[Prompt for the peer password]' \
                        '--keep-local[Keep local values on conflict]' \
                        '--use-remote[Use remote values on conflict]' \
                        '--abort[Abort on the first conflict]'
                    ;;
                diff)
                    _arguments \
                        '-host[Peer host]:host' \
                        '-port[Peer port]:port' \
                        '-remote-password[Prompt for the peer password]' \
                        '-values[Show value diffs]'
                    ;;
                keyring)
                    _values 'subcommand' save delete status
                    ;;
                help)
                    _describe -t commands 'passvault commands' commands
                    ;;
                completion)
                    _values 'shell' bash zsh fish
                    ;;
            esac
            ;;
    esac
}

_passvault_entries() {
    local -a entries
    entries=(${(f)"$(passvault ls 2>/dev/null)"})
    _describe -t entries 'vault entries' entries
}

_passvault "$@"
`

const fishCompletion = `# passvault fish completions

set -l commands init set get rm ls status serve sync diff passwd compact keyring help completion

complete -c passvault -f

# Commands
complete -c passvault -n "not __fish_seen_subcommand_from $commands" -a init -d 'Create a new vault'
complete -c passvault -n "not __fish_seen_subcommand_from $commands" -a set -d 'Store an entry'
complete -c passvault -n "not __fish_seen_subcommand_from $commands" -a get -d 'Print an entry'
complete -c passvault -n "not __fish_seen_subcommand_from $commands" -a rm -d 'Remove entries'
complete -c passvault -n "not __fish_seen_subcommand_from $commands" -a ls -d 'List entry names'
complete -c passvault -n "not __fish_seen_subcommand_from $commands" -a status -d 'Show vault metadata'
complete -c passvault -n "not __fish_seen_subcommand_from $commands" -a serve -d 'Serve the vault to peers'
complete -c passvault -n "not __fish_seen_subcommand_from $commands" -a sync -d 'Merge a peer vault'
complete -c passvault -n "not __fish_seen_subcommand_from $commands" -a diff -d 'Compare with a peer vault'
complete -c passvault -n "not __fish_seen_subcommand_from $commands" -a passwd -d 'Change master password'
complete -c passvault -n "not __fish_seen_subcommand_from $commands" -a compact -d 'Compact vault'
complete -c passvault -n "not __fish_seen_subcommand_from $commands" -a keyring -d 'Manage password in OS keyring'
complete -c passvault -n "not __fish_seen_subcommand_from $commands" -a help -d 'Show help'
complete -c passvault -n "not __fish_seen_subcommand_from $commands" -a completion -d 'Generate completions'

# entry names
complete -c passvault -n "__fish_seen_subcommand_from get rm set" -a "(passvault ls 2>/dev/null)"
complete -c passvault -n "__fish_seen_subcommand_from set" -o stdin -d 'Read the value from stdin'

# serve, sync and diff flags
complete -c passvault -n "__fish_seen_subcommand_from serve sync diff" -o host -d 'Host'
complete -c passvault -n "__fish_seen_subcommand_from serve sync diff" -o port -d 'Port'
complete -c passvault -n "__fish_seen_subcommand_from sync diff" -o remote-password -d 'Prompt for the peer password'
complete -c passvault -n "__fish_seen_subcommand_from sync" -l keep-local -d 'Keep local values'
complete -c passvault -n "__fish_seen_subcommand_from sync" -l use-remote -d 'Use remote values'
complete -c passvault -n "__fish_seen_subcommand_from sync" -l abort -d 'Abort on conflict'
complete -c passvault -n "__fish_seen_subcommand_from diff" -o values -d 'Show value diffs'

# keyring subcommands
complete -c passvault -n "__fish_seen_subcommand_from keyring" -a "save delete status"

# help completions
complete -c passvault -n "__fish_seen_subcommand_from help" -a "$commands"

# completion completions
complete -c passvault -n "__fish_seen_subcommand_from completion" -a "bash zsh fish"
`
